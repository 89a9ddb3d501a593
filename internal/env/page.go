package env

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/example/fwdetect/internal/sandbox"
)

// PageOptions configures how a Page is assembled from a document.
type PageOptions struct {
	// Globals are installed on the global object after inline scripts ran,
	// so captured values win over script-assigned ones.
	Globals map[string]any
	// ElementProperties maps a CSS selector to the own property names of
	// every element it matches.
	ElementProperties map[string][]string
	// ExecScripts runs the document's inline scripts in the sandbox.
	ExecScripts bool
	Sandbox     sandbox.Config
	Logger      logrus.FieldLogger
}

// Page is an Environment backed by a parsed document and a goja global
// namespace.
type Page struct {
	doc     *goquery.Document
	runtime *sandbox.Runtime
	props   map[*html.Node][]string
}

var _ Environment = (*Page)(nil)

// FromHTML parses r and builds a Page with default options.
func FromHTML(ctx context.Context, r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewPage(ctx, doc, PageOptions{})
}

// NewPage assembles a Page. Inline script failures are logged and skipped.
func NewPage(ctx context.Context, doc *goquery.Document, opts PageOptions) (*Page, error) {
	if opts.Sandbox.Timeout <= 0 {
		opts.Sandbox = sandbox.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	p := &Page{doc: doc, props: map[*html.Node][]string{}}

	rt, err := sandbox.New(opts.Sandbox, p.Query)
	if err != nil {
		return nil, err
	}
	p.runtime = rt

	if opts.ExecScripts {
		for _, err := range rt.RunAll(ctx, InlineScripts(doc)) {
			opts.Logger.WithError(err).Warn("Inline script failed")
		}
		for _, entry := range rt.Console() {
			opts.Logger.WithField("console", entry.Level).Debug(entry.Message)
		}
	}

	if err := p.installGlobals(opts.Globals); err != nil {
		return nil, err
	}

	if err := p.attachProperties(opts.ElementProperties); err != nil {
		return nil, err
	}

	return p, nil
}

// Console returns what inline scripts wrote to the console.
func (p *Page) Console() []sandbox.LogEntry {
	return p.runtime.Console()
}

// Global implements Environment. Exceptions thrown while reading a property,
// for instance by a getter, are returned as errors.
func (p *Page) Global(path string) (value Value, err error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return Undefined, fmt.Errorf("empty global path")
	}

	defer func() {
		if r := recover(); r != nil {
			if ex, ok := r.(*goja.Exception); ok {
				err = fmt.Errorf("read %s: %w", path, ex)
				return
			}
			err = fmt.Errorf("read %s: %v", path, r)
		}
	}()

	vm := p.runtime.VM()
	var current goja.Value = vm.GlobalObject()
	for _, segment := range segments {
		if current == nil || goja.IsUndefined(current) || goja.IsNull(current) {
			return Undefined, nil
		}
		current = current.ToObject(vm).Get(segment)
	}

	if current == nil || goja.IsUndefined(current) {
		return Undefined, nil
	}
	if goja.IsNull(current) {
		return Value{Defined: true}, nil
	}
	return Value{Defined: true, Truthy: current.ToBoolean(), Text: current.String()}, nil
}

// Query implements Environment. Unlike goquery's Find, invalid selectors are
// reported instead of silently matching nothing.
func (p *Page) Query(selector string) (bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return p.doc.FindMatcher(sel).Length() > 0, nil
}

// EachElement implements Environment.
func (p *Page) EachElement(fn func(props []string) bool) error {
	p.doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return !fn(p.props[s.Get(0)])
	})
	return nil
}

func (p *Page) installGlobals(globals map[string]any) error {
	vm := p.runtime.VM()
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := vm.Set(strings.TrimPrefix(name, "window."), globals[name]); err != nil {
			return fmt.Errorf("install global %s: %w", name, err)
		}
	}
	return nil
}

func (p *Page) attachProperties(bySelector map[string][]string) error {
	for selector, props := range bySelector {
		sel, err := cascadia.Compile(selector)
		if err != nil {
			return fmt.Errorf("element properties: invalid selector %q: %w", selector, err)
		}
		p.doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			p.props[node] = append(p.props[node], props...)
		})
	}
	return nil
}

// InlineScripts returns the executable inline scripts of doc in document
// order. External scripts and data blocks such as JSON are skipped.
func InlineScripts(doc *goquery.Document) []sandbox.Script {
	var scripts []sandbox.Script
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if !isJavaScriptType(s.AttrOr("type", "")) {
			return
		}
		source := s.Text()
		if strings.TrimSpace(source) == "" {
			return
		}

		name := fmt.Sprintf("inline-script-%d", i)
		if id, ok := s.Attr("id"); ok && id != "" {
			name = "#" + id
		}
		scripts = append(scripts, sandbox.Script{Name: name, Source: source})
	})
	return scripts
}

func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

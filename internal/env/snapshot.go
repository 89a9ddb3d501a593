package env

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// Snapshot is a captured page: its markup, the global namespace and the
// own property names of selected elements. YAML and JSON are both accepted.
type Snapshot struct {
	URL               string              `yaml:"url,omitempty"`
	HTML              string              `yaml:"html,omitempty"`
	HTMLFile          string              `yaml:"htmlFile,omitempty"`
	Globals           map[string]any      `yaml:"globals,omitempty"`
	ElementProperties map[string][]string `yaml:"elementProperties,omitempty"`
}

// LoadSnapshot reads a snapshot file. A relative htmlFile is resolved
// against the snapshot's directory.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := ParseSnapshot(data, filepath.Dir(path))
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return snap, nil
}

// ParseSnapshot decodes a snapshot document.
func ParseSnapshot(data []byte, baseDir string) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}

	if snap.HTMLFile != "" {
		if snap.HTML != "" {
			return Snapshot{}, errors.New("html and htmlFile are mutually exclusive")
		}
		path := snap.HTMLFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		markup, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Snapshot{}, fmt.Errorf("read htmlFile: %w", err)
		}
		snap.HTML = string(markup)
	}

	return snap, nil
}

// LoadGlobals reads a standalone global namespace dump (a YAML or JSON
// object keyed by global name).
func LoadGlobals(path string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var globals map[string]any
	if err := yaml.Unmarshal(data, &globals); err != nil {
		return nil, fmt.Errorf("globals %s: %w", path, err)
	}
	return globals, nil
}

// Page builds the Environment for the snapshot. opts.Globals and
// opts.ElementProperties, when set, are merged over the snapshot's own.
func (s Snapshot) Page(ctx context.Context, opts PageOptions) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(s.HTML)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	opts.Globals = mergeGlobals(s.Globals, opts.Globals)
	opts.ElementProperties = mergeProperties(s.ElementProperties, opts.ElementProperties)
	return NewPage(ctx, doc, opts)
}

// Empty reports whether the snapshot carries nothing to inspect.
func (s Snapshot) Empty() bool {
	return strings.TrimSpace(s.HTML) == "" && len(s.Globals) == 0
}

func mergeGlobals(base, overlay map[string]any) map[string]any {
	if len(overlay) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func mergeProperties(base, overlay map[string][]string) map[string][]string {
	if len(overlay) == 0 {
		return base
	}
	out := make(map[string][]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = append(append([]string(nil), out[k]...), v...)
	}
	return out
}

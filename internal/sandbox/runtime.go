// Package sandbox runs inline page scripts in an embedded goja VM so the
// globals they assign can be inspected afterwards.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Runtime wraps a goja VM with a browser-like global object.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a runtime whose document answers queries through query. A nil
// query makes every lookup miss.
func New(config Config, query QueryFunc) (*Runtime, error) {
	if config.Timeout <= 0 {
		return nil, fmt.Errorf("sandbox timeout must be positive (got %s)", config.Timeout)
	}

	r := &Runtime{
		vm:     goja.New(),
		config: config,
	}
	if config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStack)
	}
	if err := r.setupGlobals(query); err != nil {
		return nil, err
	}
	return r, nil
}

// VM returns the underlying runtime. Callers must not use it concurrently
// with Execute.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Execute runs a single script. Exceptions, syntax errors and timeouts are
// returned as errors; the VM stays usable afterwards.
func (r *Runtime) Execute(ctx context.Context, name, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	_, err := r.vm.RunScript(name, source)
	close(done)
	<-exited
	r.vm.ClearInterrupt()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("script %s interrupted: %v", name, interrupted.Value())
		}
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// RunAll executes scripts in order and returns the failures. A failing script
// does not stop the ones after it.
func (r *Runtime) RunAll(ctx context.Context, scripts []Script) []error {
	var errs []error
	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return errs
		}
		if err := r.Execute(ctx, script.Name, script.Source); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Console returns the recorded console output.
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry(nil), r.console...)
}

func (r *Runtime) setupGlobals(query QueryFunc) error {
	global := r.vm.GlobalObject()
	for _, alias := range []string{"window", "self", "globalThis"} {
		if err := r.vm.Set(alias, global); err != nil {
			return err
		}
	}

	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval", "addEventListener"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	if err := r.vm.Set("console", console); err != nil {
		return err
	}

	return r.vm.Set("document", r.makeDocument(query))
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.EnableConsole {
			return goja.Undefined()
		}

		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// makeDocument builds a minimal document whose lookups return a placeholder
// element object on a match and null otherwise.
func (r *Runtime) makeDocument(query QueryFunc) *goja.Object {
	document := r.vm.NewObject()

	lookup := func(selector string) goja.Value {
		if query == nil {
			return goja.Null()
		}
		found, err := query(selector)
		if err != nil {
			panic(r.vm.NewTypeError(err.Error()))
		}
		if !found {
			return goja.Null()
		}
		elem := r.vm.NewObject()
		_ = elem.Set("selector", selector)
		return elem
	}

	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return lookup(call.Argument(0).String())
	})
	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return lookup("#" + call.Argument(0).String())
	})
	_ = document.Set("addEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	return document
}

// Package rules holds the declarative fingerprint table and turns it into
// detector rules.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"github.com/example/fwdetect/internal/env"
)

//go:embed default.yml
var defaultTable []byte

// Definition is one fingerprint entry of the rule table.
type Definition struct {
	Name             string   `yaml:"name"`
	Globals          []string `yaml:"globals,omitempty"`
	Selectors        []string `yaml:"selectors,omitempty"`
	Scripts          []string `yaml:"scripts,omitempty"`
	Properties       []string `yaml:"properties,omitempty"`
	PropertyPrefixes []string `yaml:"propertyPrefixes,omitempty"`
	Version          string   `yaml:"version,omitempty"`
}

// File is the on-disk layout of a rule table.
type File struct {
	Rules []Definition `yaml:"rules"`
}

// DefaultTable returns the embedded table as written, for templates.
func DefaultTable() []byte {
	return append([]byte(nil), defaultTable...)
}

// Default returns the built-in definitions.
func Default() ([]Definition, error) {
	defs, err := Parse(defaultTable)
	if err != nil {
		return nil, fmt.Errorf("default rules: %w", err)
	}
	return defs, nil
}

// Parse decodes a rule table document.
func Parse(data []byte) ([]Definition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Rules, nil
}

// LoadFile reads and validates a rule table file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	if err := Validate(defs); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return defs, nil
}

// Marshal encodes definitions as a rule table document.
func Marshal(defs []Definition) ([]byte, error) {
	return yaml.Marshal(File{Rules: defs})
}

// Merge returns base with overlay applied: entries sharing a name replace the
// base entry in place, others are appended.
func Merge(base, overlay []Definition) []Definition {
	out := append([]Definition(nil), base...)
	index := make(map[string]int, len(out))
	for i, def := range out {
		index[def.Name] = i
	}
	for _, def := range overlay {
		if i, ok := index[def.Name]; ok {
			out[i] = def
			continue
		}
		index[def.Name] = len(out)
		out = append(out, def)
	}
	return out
}

// Filter drops definitions whose name is listed in disabled, ignoring case.
func Filter(defs []Definition, disabled []string) []Definition {
	if len(disabled) == 0 {
		return defs
	}
	skip := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	var out []Definition
	for _, def := range defs {
		if _, ok := skip[strings.ToLower(def.Name)]; ok {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Validate checks names, triggers and selectors.
func Validate(defs []Definition) error {
	var errs []error
	seen := map[string]struct{}{}

	for i, def := range defs {
		label := def.Name
		if strings.TrimSpace(label) == "" {
			errs = append(errs, fmt.Errorf("rule %d: name is required", i))
			label = fmt.Sprintf("#%d", i)
		} else if _, dup := seen[def.Name]; dup {
			errs = append(errs, fmt.Errorf("rule %s: duplicate name", label))
		}
		seen[def.Name] = struct{}{}

		if !def.hasTrigger() {
			errs = append(errs, fmt.Errorf("rule %s: at least one trigger is required", label))
		}

		for _, path := range def.Globals {
			if err := validatePath(path); err != nil {
				errs = append(errs, fmt.Errorf("rule %s: global %q: %w", label, path, err))
			}
		}
		if def.Version != "" {
			if err := validatePath(def.Version); err != nil {
				errs = append(errs, fmt.Errorf("rule %s: version %q: %w", label, def.Version, err))
			}
		}

		for _, selector := range def.Selectors {
			if _, err := cascadia.Compile(selector); err != nil {
				errs = append(errs, fmt.Errorf("rule %s: selector %q: %w", label, selector, err))
			}
		}

		for _, src := range def.Scripts {
			if strings.TrimSpace(src) == "" || strings.ContainsAny(src, "\"\\") {
				errs = append(errs, fmt.Errorf("rule %s: script pattern %q must be non-empty and unquoted", label, src))
			}
		}

		for _, prop := range append(append([]string(nil), def.Properties...), def.PropertyPrefixes...) {
			if strings.TrimSpace(prop) == "" {
				errs = append(errs, fmt.Errorf("rule %s: empty property name", label))
			}
		}
	}

	return errors.Join(errs...)
}

func (d Definition) hasTrigger() bool {
	return len(d.Globals)+len(d.Selectors)+len(d.Scripts)+len(d.Properties)+len(d.PropertyPrefixes) > 0
}

func validatePath(path string) error {
	segments := env.SplitPath(path)
	if len(segments) == 0 {
		return errors.New("empty path")
	}
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return errors.New("empty path segment")
		}
	}
	return nil
}

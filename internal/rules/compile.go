package rules

import (
	"fmt"
	"strings"

	"github.com/example/fwdetect/internal/detector"
	"github.com/example/fwdetect/internal/env"
)

// Compile validates defs and builds detector rules in the same order.
func Compile(defs []Definition) ([]detector.Rule, error) {
	if err := Validate(defs); err != nil {
		return nil, err
	}

	compiled := make([]detector.Rule, 0, len(defs))
	for _, def := range defs {
		compiled = append(compiled, compileOne(def))
	}
	return compiled, nil
}

func compileOne(def Definition) detector.Rule {
	def = def.clone()
	rule := detector.Rule{
		Name:   def.Name,
		Detect: def.detect,
	}
	if def.Version != "" {
		path := def.Version
		rule.Version = func(e env.Environment) (string, error) {
			value, err := e.Global(path)
			if err != nil {
				return "", err
			}
			if !value.Truthy {
				return "", nil
			}
			return value.Text, nil
		}
	}
	return rule
}

// detect short-circuits on the first matching trigger; the first failing
// probe fails the whole rule.
func (d Definition) detect(e env.Environment) (bool, error) {
	for _, path := range d.Globals {
		value, err := e.Global(path)
		if err != nil {
			return false, err
		}
		if value.Truthy {
			return true, nil
		}
	}

	for _, selector := range d.Selectors {
		found, err := e.Query(selector)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}

	for _, src := range d.Scripts {
		found, err := e.Query(ScriptSelector(src))
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}

	if len(d.Properties) == 0 && len(d.PropertyPrefixes) == 0 {
		return false, nil
	}

	matched := false
	err := e.EachElement(func(props []string) bool {
		for _, prop := range props {
			if d.matchesProperty(prop) {
				matched = true
				return true
			}
		}
		return false
	})
	return matched, err
}

func (d Definition) matchesProperty(prop string) bool {
	for _, name := range d.Properties {
		if prop == name {
			return true
		}
	}
	for _, prefix := range d.PropertyPrefixes {
		if strings.HasPrefix(prop, prefix) {
			return true
		}
	}
	return false
}

func (d Definition) clone() Definition {
	d.Globals = append([]string(nil), d.Globals...)
	d.Selectors = append([]string(nil), d.Selectors...)
	d.Scripts = append([]string(nil), d.Scripts...)
	d.Properties = append([]string(nil), d.Properties...)
	d.PropertyPrefixes = append([]string(nil), d.PropertyPrefixes...)
	return d
}

// ScriptSelector matches script tags whose src contains fragment.
func ScriptSelector(fragment string) string {
	return fmt.Sprintf(`script[src*="%s"]`, fragment)
}

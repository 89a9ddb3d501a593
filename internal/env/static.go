package env

import "strings"

// Static is an in-memory Environment for tests and for callers that already
// hold a decoded global namespace.
type Static struct {
	Globals   map[string]any
	Selectors map[string]bool
	Elements  [][]string
	// Errors fails lookups of the given global path or selector.
	Errors map[string]error
}

var _ Environment = (*Static)(nil)

// Global implements Environment.
func (s *Static) Global(path string) (Value, error) {
	if err, ok := s.Errors[path]; ok {
		return Undefined, err
	}

	var current any = s.Globals
	for _, segment := range SplitPath(path) {
		obj, ok := current.(map[string]any)
		if !ok {
			return Undefined, nil
		}
		current, ok = obj[segment]
		if !ok {
			return Undefined, nil
		}
	}
	return ValueOf(current), nil
}

// Query implements Environment.
func (s *Static) Query(selector string) (bool, error) {
	if err, ok := s.Errors[selector]; ok {
		return false, err
	}
	if s.Selectors[selector] {
		return true, nil
	}
	// Grouped selectors match when any listed member does.
	for _, part := range strings.Split(selector, ",") {
		if s.Selectors[strings.TrimSpace(part)] {
			return true, nil
		}
	}
	return false, nil
}

// EachElement implements Environment.
func (s *Static) EachElement(fn func(props []string) bool) error {
	if err, ok := s.Errors["*"]; ok {
		return err
	}
	for _, props := range s.Elements {
		if fn(props) {
			return nil
		}
	}
	return nil
}

// Package env models the page environment that framework rules probe: the
// global namespace, the document tree and the own properties of each element.
package env

import (
	"fmt"
	"math"
	"strings"
)

// Environment is the read-only capability set a rule may use.
type Environment interface {
	// Global resolves a dotted path such as "jQuery.fn.jquery" against the
	// global namespace. Missing intermediate segments resolve to an undefined
	// Value rather than an error, like optional chaining.
	Global(path string) (Value, error)

	// Query reports whether any element matches the CSS selector.
	Query(selector string) (bool, error)

	// EachElement calls fn with the own property names of every element in
	// document order until fn returns true.
	EachElement(fn func(props []string) bool) error
}

// Value is the result of a global lookup.
type Value struct {
	Defined bool
	Truthy  bool
	Text    string
}

// Undefined is the zero lookup result.
var Undefined = Value{}

// ValueOf converts an exported Go value into a Value using JavaScript
// truthiness.
func ValueOf(v any) Value {
	if v == nil {
		return Undefined
	}
	return Value{Defined: true, Truthy: Truthy(v), Text: text(v)}
}

// Truthy reports whether v would coerce to true in JavaScript.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, text(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// SplitPath splits a dotted global path, trimming a leading "window." since
// window is the global object itself.
func SplitPath(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "window.")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

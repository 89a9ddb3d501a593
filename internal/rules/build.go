package rules

import (
	"errors"

	"github.com/example/fwdetect/internal/detector"
)

// BuildOptions selects the effective rule table.
type BuildOptions struct {
	// File is an optional user table merged over the defaults.
	File string
	// NoDefaults starts from an empty table instead of the built-in one.
	NoDefaults bool
	// Disabled lists rule names to drop.
	Disabled []string
}

// Definitions resolves the effective definition list.
func Definitions(opts BuildOptions) ([]Definition, error) {
	var defs []Definition
	if !opts.NoDefaults {
		base, err := Default()
		if err != nil {
			return nil, err
		}
		defs = base
	}

	if opts.File != "" {
		overlay, err := LoadFile(opts.File)
		if err != nil {
			return nil, err
		}
		defs = Merge(defs, overlay)
	} else if opts.NoDefaults {
		return nil, errors.New("a rules file is required when default rules are disabled")
	}

	return Filter(defs, opts.Disabled), nil
}

// Build resolves and compiles the effective rule table.
func Build(opts BuildOptions) ([]detector.Rule, error) {
	defs, err := Definitions(opts)
	if err != nil {
		return nil, err
	}
	return Compile(defs)
}

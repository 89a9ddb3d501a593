package detector

import (
	"github.com/sirupsen/logrus"

	"github.com/example/fwdetect/internal/env"
)

// Rule fingerprints one framework or library.
type Rule struct {
	Name string
	// Detect probes the environment. It must not mutate it.
	Detect func(e env.Environment) (bool, error)
	// Version is optional; an empty result means the version is hidden.
	Version func(e env.Environment) (string, error)
}

// Detector evaluates an ordered rule list against an environment.
type Detector struct {
	rules  []Rule
	logger logrus.FieldLogger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger routes warnings and the summary line to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New builds a detector over rules, keeping their registration order.
func New(rules []Rule, opts ...Option) *Detector {
	d := &Detector{
		rules:  append([]Rule(nil), rules...),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

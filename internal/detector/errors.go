package detector

import (
	"errors"
	"fmt"
)

// Phase names the rule step that failed.
type Phase string

const (
	PhaseDetect  Phase = "detect"
	PhaseVersion Phase = "version"
)

// ErrNoPredicate is reported for a rule registered without Detect.
var ErrNoPredicate = errors.New("rule has no detect predicate")

// RuleError is raised when a rule fails while probing the environment. It is
// contained by the detector and never returned from Run.
type RuleError struct {
	Rule  string
	Phase Phase
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("detection error for %s (%s): %v", e.Rule, e.Phase, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

package detector

import (
	"fmt"

	"github.com/example/fwdetect/internal/env"
)

const (
	// SuccessMarker prefixes the summary line when something was detected.
	SuccessMarker = "✅ Detected frameworks/libraries:"
	// NothingFoundMarker is logged when no rule matched.
	NothingFoundMarker = "❌ No known frameworks detected."
)

// Run evaluates every rule once and returns the detection report. Failing
// rules are logged and left out; Run itself never fails.
func (d *Detector) Run(e env.Environment) *Report {
	report, _ := d.RunDetailed(e)
	return report
}

// RunDetailed is Run that also returns the per-rule failures.
func (d *Detector) RunDetailed(e env.Environment) (*Report, []*RuleError) {
	report := NewReport()
	var failures []*RuleError

	for _, rule := range d.rules {
		status, matched, err := evaluate(rule, e)
		if err != nil {
			d.logger.WithField("rule", rule.Name).WithError(err.Err).Warnf("Detection error for %s", rule.Name)
			failures = append(failures, err)
			continue
		}
		if matched {
			report.Set(rule.Name, status)
		}
	}

	if report.Len() > 0 {
		d.logger.Infof("%s %s", SuccessMarker, report)
	} else {
		d.logger.Info(NothingFoundMarker)
	}

	return report, failures
}

func evaluate(rule Rule, e env.Environment) (status string, matched bool, ruleErr *RuleError) {
	phase := PhaseDetect
	defer func() {
		if r := recover(); r != nil {
			status, matched = "", false
			ruleErr = &RuleError{Rule: rule.Name, Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if rule.Detect == nil {
		return "", false, &RuleError{Rule: rule.Name, Phase: phase, Err: ErrNoPredicate}
	}

	ok, err := rule.Detect(e)
	if err != nil {
		return "", false, &RuleError{Rule: rule.Name, Phase: phase, Err: err}
	}
	if !ok {
		return "", false, nil
	}

	if rule.Version == nil {
		return StatusPresent, true, nil
	}

	phase = PhaseVersion
	version, err := rule.Version(e)
	if err != nil {
		return "", false, &RuleError{Rule: rule.Name, Phase: phase, Err: err}
	}
	return versionStatus(version), true, nil
}

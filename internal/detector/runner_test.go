package detector

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/example/fwdetect/internal/env"
)

func quietLogger() logrus.FieldLogger {
	logger, _ := logtest.NewNullLogger()
	return logger
}

func fixed(ok bool, err error) func(env.Environment) (bool, error) {
	return func(env.Environment) (bool, error) { return ok, err }
}

func TestRunIsolatesFailingRules(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	rules := []Rule{
		{Name: "one", Detect: fixed(true, nil)},
		{Name: "two", Detect: fixed(false, errors.New("boom"))},
		{Name: "three", Detect: func(env.Environment) (bool, error) { panic("bad fingerprint") }},
		{Name: "four", Detect: fixed(true, nil), Version: func(env.Environment) (string, error) {
			return "", errors.New("version read failed")
		}},
		{Name: "five", Detect: fixed(true, nil)},
	}

	report, failures := New(rules, WithLogger(logger)).RunDetailed(&env.Static{})

	if got := report.Names(); strings.Join(got, ",") != "one,five" {
		t.Fatalf("unexpected report entries: %v", got)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(failures))
	}
	if failures[2].Phase != PhaseVersion {
		t.Fatalf("expected version phase failure, got %s", failures[2].Phase)
	}

	var warnings []*logrus.Entry
	for i := range hook.Entries {
		if hook.Entries[i].Level == logrus.WarnLevel {
			warnings = append(warnings, &hook.Entries[i])
		}
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(warnings))
	}
	if warnings[0].Data["rule"] != "two" {
		t.Fatalf("warning should name the rule, got %v", warnings[0].Data)
	}
	if !strings.Contains(warnings[1].Data[logrus.ErrorKey].(error).Error(), "bad fingerprint") {
		t.Fatalf("panic should be reported, got %v", warnings[1].Data)
	}
}

func TestRunLogsSummary(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	New([]Rule{{Name: "Ember.js", Detect: fixed(true, nil)}}, WithLogger(logger)).Run(&env.Static{})
	if msg := hook.LastEntry().Message; !strings.HasPrefix(msg, SuccessMarker) || !strings.Contains(msg, `"Ember.js":"present"`) {
		t.Fatalf("unexpected summary line: %s", msg)
	}

	hook.Reset()
	report := New([]Rule{{Name: "Ember.js", Detect: fixed(false, nil)}}, WithLogger(logger)).Run(&env.Static{})
	if report.Len() != 0 {
		t.Fatalf("expected empty report, got %s", report)
	}
	if msg := hook.LastEntry().Message; msg != NothingFoundMarker {
		t.Fatalf("expected nothing-found marker, got %s", msg)
	}
}

func TestRunOrderIndependent(t *testing.T) {
	rules := []Rule{
		{Name: "a", Detect: fixed(true, nil)},
		{Name: "b", Detect: fixed(true, nil), Version: func(env.Environment) (string, error) { return "2.0", nil }},
		{Name: "c", Detect: fixed(false, nil)},
		{Name: "d", Detect: fixed(true, errors.New("x"))},
	}
	reversed := make([]Rule, len(rules))
	for i, r := range rules {
		reversed[len(rules)-1-i] = r
	}

	forward := New(rules, WithLogger(quietLogger())).Run(&env.Static{}).Map()
	backward := New(reversed, WithLogger(quietLogger())).Run(&env.Static{}).Map()

	if len(forward) != len(backward) {
		t.Fatalf("reports differ: %v vs %v", forward, backward)
	}
	for k, v := range forward {
		if backward[k] != v {
			t.Fatalf("reports differ at %s: %v vs %v", k, forward, backward)
		}
	}
}

func TestRunMissingPredicate(t *testing.T) {
	_, failures := New([]Rule{{Name: "empty"}}, WithLogger(quietLogger())).RunDetailed(&env.Static{})
	if len(failures) != 1 || !errors.Is(failures[0], ErrNoPredicate) {
		t.Fatalf("expected ErrNoPredicate, got %v", failures)
	}
}

func TestRuleErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := error(&RuleError{Rule: "React.js", Phase: PhaseDetect, Err: cause})

	if !errors.Is(err, cause) {
		t.Fatalf("RuleError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "React.js") {
		t.Fatalf("error should name the rule: %s", err)
	}
}

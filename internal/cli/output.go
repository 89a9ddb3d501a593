package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/fwdetect/internal/detector"
	"github.com/example/fwdetect/internal/events"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	missColor    = color.New(color.FgYellow)
)

func renderText(w io.Writer, report *detector.Report) error {
	if report.Len() == 0 {
		_, err := missColor.Fprintln(w, detector.NothingFoundMarker)
		return err
	}

	if _, err := successColor.Fprintln(w, detector.SuccessMarker); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range report.Names() {
		status, _ := report.Get(name)
		if _, err := fmt.Fprintf(tw, "  %s\t%s\n", name, status); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func renderJSON(w io.Writer, report *detector.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func renderNDJSON(emitter *events.Emitter, source string, ruleCount int, report *detector.Report, failures []*detector.RuleError) error {
	if err := emitter.Emit(events.Event{Type: events.TypeDetectStart, Message: "Starting detection", Fields: map[string]interface{}{"source": source, "rules": ruleCount}}); err != nil {
		return err
	}

	for _, f := range failures {
		if err := emitter.RuleFailed(f.Rule, string(f.Phase), f.Err); err != nil {
			return err
		}
	}

	for _, name := range report.Names() {
		status, _ := report.Get(name)
		if err := emitter.Detected(name, status); err != nil {
			return err
		}
	}

	if report.Len() == 0 {
		return emitter.Emit(events.Event{Type: events.TypeNothingDetected, Message: detector.NothingFoundMarker})
	}
	return emitter.Emit(events.Event{Type: events.TypeDetectFinished, Message: "Detection complete", Fields: map[string]interface{}{"detected": report.Len()}})
}

package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types written by the detect command.
const (
	TypeDetectStart       = "detect-start"
	TypeRuleError         = "rule-error"
	TypeFrameworkDetected = "framework-detected"
	TypeDetectFinished    = "detect-finished"
	TypeNothingDetected   = "nothing-detected"
)

// Event represents a single NDJSON record.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w, now: func() time.Time { return time.Now().UTC() }}
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, err = e.writer.Write(append(payload, '\n'))
	return err
}

// Detected emits one framework-detected event.
func (e *Emitter) Detected(name, status string) error {
	return e.Emit(Event{
		Type:   TypeFrameworkDetected,
		Fields: map[string]interface{}{"name": name, "status": status},
	})
}

// RuleFailed emits a rule-error event for a contained rule failure.
func (e *Emitter) RuleFailed(rule, phase string, err error) error {
	return e.Emit(Event{
		Type:    TypeRuleError,
		Message: err.Error(),
		Fields:  map[string]interface{}{"rule": rule, "phase": phase},
	})
}

package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Report maps framework names to their status. Iteration follows the order
// in which rules first matched.
type Report struct {
	names  []string
	status map[string]string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{status: map[string]string{}}
}

// Set records status for name. A repeated name keeps its first position.
func (r *Report) Set(name, status string) {
	if _, ok := r.status[name]; !ok {
		r.names = append(r.names, name)
	}
	r.status[name] = status
}

// Get returns the status recorded for name.
func (r *Report) Get(name string) (string, bool) {
	status, ok := r.status[name]
	return status, ok
}

// Len returns the number of detected entries.
func (r *Report) Len() int {
	return len(r.names)
}

// Names returns the detected names in order.
func (r *Report) Names() []string {
	return append([]string(nil), r.names...)
}

// Map returns a copy of the report as a plain map.
func (r *Report) Map() map[string]string {
	out := make(map[string]string, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}

// String renders the report as a compact JSON object.
func (r *Report) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", r.status)
	}
	return string(data)
}

// MarshalJSON encodes the report as an object in detection order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.status[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object with string values, keeping key order.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("report must be a JSON object")
	}

	out := NewReport()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected report key %v", tok)
		}
		var status string
		if err := dec.Decode(&status); err != nil {
			return fmt.Errorf("status for %s: %w", name, err)
		}
		out.Set(name, status)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *out
	return nil
}

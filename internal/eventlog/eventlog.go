// Package eventlog defines the append-only record sink the
// tip-preparation engine writes a line to per cycle, and ships one
// newline-delimited-JSON implementation of it.
package eventlog

import (
	"encoding/json"
	"io"
	"time"
)

// SignalStats summarizes one segment of a captured telemetry window.
type SignalStats struct {
	Mean float32 `json:"mean"`
	Min  float32 `json:"min"`
	Max  float32 `json:"max"`
	Last float32 `json:"last"`
}

// WindowSummary buckets a captured telemetry window into the segments
// before, during, and after the action that triggered the capture.
// Segments with no frames are omitted.
type WindowSummary struct {
	Pre    *SignalStats `json:"pre,omitempty"`
	During *SignalStats `json:"during,omitempty"`
	Post   *SignalStats `json:"post,omitempty"`
}

// Record is one persisted cycle entry.
type Record struct {
	Timestamp      time.Time      `json:"timestamp"`
	Cycle          int            `json:"cycle"`
	StateBefore    string         `json:"state_before"`
	ActionTaken    string         `json:"action_taken"`
	PulseVoltage   float32        `json:"pulse_voltage,omitempty"`
	Classification string         `json:"classification"`
	Window         *WindowSummary `json:"window,omitempty"`
	// SignalConfidence is the signal registry's TCP-channel-mapping
	// confidence tag for the primary signal at capture time (missing,
	// assumed, confirmed, conflicted), since the controller itself
	// never confirms logger-slot assignments.
	SignalConfidence string `json:"signal_confidence,omitempty"`
}

// Sink is the interface the engine writes records to. Callers may
// substitute their own sink (a database, a message bus) in place of
// the default JSONSink.
type Sink interface {
	Write(Record) error
}

// JSONSink writes one newline-delimited JSON object per record to w.
type JSONSink struct {
	w   io.Writer
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, enc: json.NewEncoder(w)}
}

func (s *JSONSink) Write(r Record) error {
	return s.enc.Encode(r)
}

// Discard drops every record; useful as a Sink default in tests and
// when no caller-supplied sink is configured.
type Discard struct{}

func (Discard) Write(Record) error { return nil }

package eventlog

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestJSONSinkWriteEncodesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)

	rec := Record{
		Timestamp:      time.Unix(1000, 0).UTC(),
		Cycle:          3,
		StateBefore:    "Blunt",
		ActionTaken:    "bias_pulse+reposition",
		PulseVoltage:   4.5,
		Classification: "Good",
	}
	if err := sink.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var got Record
	if err := json.Unmarshal(lines[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Cycle != 3 || got.StateBefore != "Blunt" || got.Classification != "Good" {
		t.Fatalf("round-tripped record mismatch: %+v", got)
	}
}

func TestDiscardWriteIsNoOp(t *testing.T) {
	if err := (Discard{}).Write(Record{Cycle: 1}); err != nil {
		t.Fatalf("Discard.Write returned error: %v", err)
	}
}

package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Command: "Bias.Set", BodySize: 4, ResponseExpected: true}
	buf, err := WriteHeader(h)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if len(buf) != HeaderSize {
		t.Fatalf("expected %d bytes, got %d", HeaderSize, len(buf))
	}

	got, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, h)
	}
}

func TestWriteHeaderRejectsOverlongCommand(t *testing.T) {
	_, err := WriteHeader(Header{Command: "ThisCommandNameIsDefinitelyTooLongForTheField"})
	if err == nil {
		t.Fatalf("expected error for overlong command name")
	}
}

func TestBuildMessageEncodesBiasSet(t *testing.T) {
	body := Encode(nil, NewF32(-0.5))
	msg, err := BuildMessage("Bias.Set", true, body)
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	if len(msg) != HeaderSize+4 {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+4, len(msg))
	}
	hdr, err := ParseHeader(msg)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if hdr.Command != "Bias.Set" || hdr.BodySize != 4 || !hdr.ResponseExpected {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestDecodeErrorTailAbsentWhenBodyExhausted(t *testing.T) {
	d := NewDecoder(Encode(nil, NewF32(1.0)))
	if _, err := d.DecodeF32(); err != nil {
		t.Fatalf("DecodeF32: %v", err)
	}
	_, ok, err := DecodeErrorTail(d)
	if err != nil {
		t.Fatalf("DecodeErrorTail: %v", err)
	}
	if ok {
		t.Fatalf("expected no error tail when body is exhausted")
	}
}

func TestDecodeErrorTailPresent(t *testing.T) {
	buf := Encode(nil, NewI32(7))
	buf = Encode(buf, NewString("out of range"))
	d := NewDecoder(buf)
	tail, ok, err := DecodeErrorTail(d)
	if err != nil {
		t.Fatalf("DecodeErrorTail: %v", err)
	}
	if !ok {
		t.Fatalf("expected an error tail")
	}
	if tail.Status != 7 || tail.Description != "out of range" {
		t.Fatalf("unexpected tail: %+v", tail)
	}
}

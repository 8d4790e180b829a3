package wire

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		NewU16(1234),
		NewI16(-42),
		NewU32(987654),
		NewI32(-987654),
		NewF32(-0.5),
		NewF64(3.1415926535),
		NewString("Bias.Set"),
		NewU16Array([]uint16{1, 2, 3}),
		NewI32Array([]int32{-1, 0, 1}),
		NewF32Array([]float32{1.5, -2.5, 3.5}),
		NewF32Matrix([][]float32{{1, 2}, {3, 4}}),
	}

	for _, v := range cases {
		buf := Encode(nil, v)
		d := NewDecoder(buf)

		switch v.Kind() {
		case KindU16:
			got, err := d.DecodeU16()
			want, _ := v.AsU16()
			if err != nil || got != want {
				t.Fatalf("u16 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindI16:
			got, err := d.DecodeI16()
			want, _ := v.AsI16()
			if err != nil || got != want {
				t.Fatalf("i16 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindU32:
			got, err := d.DecodeU32()
			want, _ := v.AsU32()
			if err != nil || got != want {
				t.Fatalf("u32 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindI32:
			got, err := d.DecodeI32()
			want, _ := v.AsI32()
			if err != nil || got != want {
				t.Fatalf("i32 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindF32:
			got, err := d.DecodeF32()
			want, _ := v.AsF32()
			if err != nil || got != want {
				t.Fatalf("f32 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindF64:
			got, err := d.DecodeF64()
			want, _ := v.AsF64()
			if err != nil || got != want {
				t.Fatalf("f64 round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindString:
			got, err := d.DecodeString()
			want, _ := v.AsString()
			if err != nil || got != want {
				t.Fatalf("string round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindU16Array:
			got, err := d.DecodeU16Array()
			want, _ := v.AsU16Array()
			if err != nil || !equalU16(got, want) {
				t.Fatalf("u16[] round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindI32Array:
			got, err := d.DecodeI32Array()
			want, _ := v.AsI32Array()
			if err != nil || !equalI32(got, want) {
				t.Fatalf("i32[] round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindF32Array:
			got, err := d.DecodeF32Array()
			want, _ := v.AsF32Array()
			if err != nil || !equalF32(got, want) {
				t.Fatalf("f32[] round trip: got=%v err=%v want=%v", got, err, want)
			}
		case KindF32Matrix:
			got, err := d.DecodeF32Matrix()
			want, _ := v.AsF32Matrix()
			if err != nil || !equalMatrix(got, want) {
				t.Fatalf("f32[][] round trip: got=%v err=%v want=%v", got, err, want)
			}
		}
	}
}

func TestDecodeShortReadReturnsTypedError(t *testing.T) {
	d := NewDecoder([]byte{0x00, 0x01})
	_, err := d.DecodeU32()
	if err == nil {
		t.Fatalf("expected short read error")
	}
	var sre *ShortReadError
	if !errors.As(err, &sre) {
		t.Fatalf("expected *ShortReadError, got %T", err)
	}
}

func TestTypeMismatchOnWrongAccessor(t *testing.T) {
	v := NewF32(1.0)
	if _, err := v.AsU16(); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func equalU16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalI32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalF32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalMatrix(a, b [][]float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalF32(a[i], b[i]) {
			return false
		}
	}
	return true
}

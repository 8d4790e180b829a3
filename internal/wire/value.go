// Package wire implements the Nanonis TCP binary protocol's typed value
// codec: encoding and decoding of the scalar and array kinds the protocol
// carries, independent of socket I/O or command framing.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind tags a Value with the wire type it was encoded from.
type Kind int

const (
	KindU16 Kind = iota
	KindI16
	KindU32
	KindI32
	KindF32
	KindF64
	KindString
	KindU16Array
	KindI32Array
	KindF32Array
	KindF32Matrix
)

func (k Kind) String() string {
	switch k {
	case KindU16:
		return "u16"
	case KindI16:
		return "i16"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindU16Array:
		return "u16[]"
	case KindI32Array:
		return "i32[]"
	case KindF32Array:
		return "f32[]"
	case KindF32Matrix:
		return "f32[][]"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the scalar and array domain the Nanonis
// wire protocol supports. Zero value is the invalid Value; always
// construct via the New* helpers.
type Value struct {
	kind   Kind
	u      uint64
	f      float64
	str    string
	u16s   []uint16
	i32s   []int32
	f32s   []float32
	matrix [][]float32
}

func NewU16(v uint16) Value       { return Value{kind: KindU16, u: uint64(v)} }
func NewI16(v int16) Value        { return Value{kind: KindI16, u: uint64(uint16(v))} }
func NewU32(v uint32) Value       { return Value{kind: KindU32, u: uint64(v)} }
func NewI32(v int32) Value        { return Value{kind: KindI32, u: uint64(uint32(v))} }
func NewF32(v float32) Value      { return Value{kind: KindF32, f: float64(v)} }
func NewF64(v float64) Value      { return Value{kind: KindF64, f: v} }
func NewString(v string) Value    { return Value{kind: KindString, str: v} }
func NewU16Array(v []uint16) Value { return Value{kind: KindU16Array, u16s: v} }
func NewI32Array(v []int32) Value  { return Value{kind: KindI32Array, i32s: v} }
func NewF32Array(v []float32) Value { return Value{kind: KindF32Array, f32s: v} }
func NewF32Matrix(v [][]float32) Value { return Value{kind: KindF32Matrix, matrix: v} }

func (v Value) Kind() Kind { return v.kind }

// TypeMismatchError is returned by every As* accessor when the Value's
// Kind does not match the requested Go type.
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wire: type mismatch: want %s, got %s", e.Want, e.Got)
}

func (v Value) AsU16() (uint16, error) {
	if v.kind != KindU16 {
		return 0, &TypeMismatchError{Want: KindU16, Got: v.kind}
	}
	return uint16(v.u), nil
}

func (v Value) AsI16() (int16, error) {
	if v.kind != KindI16 {
		return 0, &TypeMismatchError{Want: KindI16, Got: v.kind}
	}
	return int16(uint16(v.u)), nil
}

func (v Value) AsU32() (uint32, error) {
	if v.kind != KindU32 {
		return 0, &TypeMismatchError{Want: KindU32, Got: v.kind}
	}
	return uint32(v.u), nil
}

func (v Value) AsI32() (int32, error) {
	if v.kind != KindI32 {
		return 0, &TypeMismatchError{Want: KindI32, Got: v.kind}
	}
	return int32(uint32(v.u)), nil
}

func (v Value) AsF32() (float32, error) {
	if v.kind != KindF32 {
		return 0, &TypeMismatchError{Want: KindF32, Got: v.kind}
	}
	return float32(v.f), nil
}

func (v Value) AsF64() (float64, error) {
	if v.kind != KindF64 {
		return 0, &TypeMismatchError{Want: KindF64, Got: v.kind}
	}
	return v.f, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &TypeMismatchError{Want: KindString, Got: v.kind}
	}
	return v.str, nil
}

func (v Value) AsU16Array() ([]uint16, error) {
	if v.kind != KindU16Array {
		return nil, &TypeMismatchError{Want: KindU16Array, Got: v.kind}
	}
	return v.u16s, nil
}

func (v Value) AsI32Array() ([]int32, error) {
	if v.kind != KindI32Array {
		return nil, &TypeMismatchError{Want: KindI32Array, Got: v.kind}
	}
	return v.i32s, nil
}

func (v Value) AsF32Array() ([]float32, error) {
	if v.kind != KindF32Array {
		return nil, &TypeMismatchError{Want: KindF32Array, Got: v.kind}
	}
	return v.f32s, nil
}

func (v Value) AsF32Matrix() ([][]float32, error) {
	if v.kind != KindF32Matrix {
		return nil, &TypeMismatchError{Want: KindF32Matrix, Got: v.kind}
	}
	return v.matrix, nil
}

// ShortReadError reports that a decode ran out of bytes before finishing
// a value.
type ShortReadError struct {
	Kind   Kind
	Need   int
	Have   int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("wire: short read decoding %s: need %d bytes, have %d", e.Kind, e.Need, e.Have)
}

// Encode appends the wire representation of v to buf and returns the
// extended slice.
func Encode(buf []byte, v Value) []byte {
	switch v.kind {
	case KindU16:
		return appendU16(buf, uint16(v.u))
	case KindI16:
		return appendU16(buf, uint16(v.u))
	case KindU32:
		return appendU32(buf, uint32(v.u))
	case KindI32:
		return appendU32(buf, uint32(v.u))
	case KindF32:
		return appendU32(buf, math.Float32bits(float32(v.f)))
	case KindF64:
		return appendU64(buf, math.Float64bits(v.f))
	case KindString:
		buf = appendU32(buf, uint32(len(v.str)))
		return append(buf, v.str...)
	case KindU16Array:
		buf = appendU32(buf, uint32(len(v.u16s)))
		for _, e := range v.u16s {
			buf = appendU16(buf, e)
		}
		return buf
	case KindI32Array:
		buf = appendU32(buf, uint32(len(v.i32s)))
		for _, e := range v.i32s {
			buf = appendU32(buf, uint32(e))
		}
		return buf
	case KindF32Array:
		buf = appendU32(buf, uint32(len(v.f32s)))
		for _, e := range v.f32s {
			buf = appendU32(buf, math.Float32bits(e))
		}
		return buf
	case KindF32Matrix:
		rows := uint32(len(v.matrix))
		cols := uint32(0)
		if rows > 0 {
			cols = uint32(len(v.matrix[0]))
		}
		buf = appendU32(buf, rows)
		buf = appendU32(buf, cols)
		for _, row := range v.matrix {
			for _, e := range row {
				buf = appendU32(buf, math.Float32bits(e))
			}
		}
		return buf
	default:
		return buf
	}
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Decoder reads typed values from a byte slice in order, tracking the
// read offset. It is used both for plain Decode* calls and for the
// length-cross-referencing decode of per-command responses (see
// DecodeTrailingString and DecodeMatrixFromPrior below).
type Decoder struct {
	buf []byte
	off int

	// priorInts holds every integer-ish scalar decoded so far, in order;
	// DecodeTrailingString (-c) uses the last one and
	// DecodeMatrixFromPrior (2D shape) the last two.
	priorInts []int64
}

func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) remaining() int { return len(d.buf) - d.off }

func (d *Decoder) need(n int, k Kind) error {
	if d.remaining() < n {
		return &ShortReadError{Kind: k, Need: n, Have: d.remaining()}
	}
	return nil
}

func (d *Decoder) DecodeU16() (uint16, error) {
	if err := d.need(2, KindU16); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	d.priorInts = append(d.priorInts, int64(v))
	return v, nil
}

func (d *Decoder) DecodeI16() (int16, error) {
	v, err := d.DecodeU16()
	return int16(v), err
}

func (d *Decoder) DecodeU32() (uint32, error) {
	if err := d.need(4, KindU32); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	d.priorInts = append(d.priorInts, int64(v))
	return v, nil
}

func (d *Decoder) DecodeI32() (int32, error) {
	v, err := d.DecodeU32()
	return int32(v), err
}

func (d *Decoder) DecodeF32() (float32, error) {
	if err := d.need(4, KindF32); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return math.Float32frombits(bits), nil
}

func (d *Decoder) DecodeF64() (float64, error) {
	if err := d.need(8, KindF64); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return math.Float64frombits(bits), nil
}

// DecodeString reads a u32-length-prefixed string (the common case).
func (d *Decoder) DecodeString() (string, error) {
	n, err := d.DecodeU32()
	if err != nil {
		return "", err
	}
	return d.readStringOfLen(int(n))
}

// DecodeTrailingString implements the "-c" spec: the string's length is
// the most recently decoded integer result, with no length prefix of
// its own in the body at this point.
func (d *Decoder) DecodeTrailingString() (string, error) {
	if len(d.priorInts) == 0 {
		return "", fmt.Errorf("wire: DecodeTrailingString: no prior integer length available")
	}
	n := d.priorInts[len(d.priorInts)-1]
	return d.readStringOfLen(int(n))
}

func (d *Decoder) readStringOfLen(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("wire: negative string length %d", n)
	}
	if err := d.need(n, KindString); err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s, nil
}

func (d *Decoder) DecodeF32Array() ([]float32, error) {
	n, err := d.DecodeU32()
	if err != nil {
		return nil, err
	}
	return d.readF32s(int(n))
}

func (d *Decoder) DecodeI32Array() ([]int32, error) {
	n, err := d.DecodeU32()
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		v, err := d.DecodeI32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Decoder) DecodeU16Array() ([]uint16, error) {
	n, err := d.DecodeU32()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		v, err := d.DecodeU16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Decoder) readF32s(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		v, err := d.DecodeF32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeMatrixFromPrior implements the 2D-matrix spec: rows and cols are
// the two integers decoded immediately before this call.
func (d *Decoder) DecodeMatrixFromPrior() ([][]float32, error) {
	if len(d.priorInts) < 2 {
		return nil, fmt.Errorf("wire: DecodeMatrixFromPrior: need 2 prior integers, have %d", len(d.priorInts))
	}
	rows := d.priorInts[len(d.priorInts)-2]
	cols := d.priorInts[len(d.priorInts)-1]
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("wire: negative matrix shape (%d,%d)", rows, cols)
	}
	out := make([][]float32, rows)
	for r := range out {
		row, err := d.readF32s(int(cols))
		if err != nil {
			return nil, err
		}
		out[r] = row
	}
	return out, nil
}

// DecodeF32Matrix reads a self-contained 2D matrix: (rows u32, cols u32,
// row-major f32 values), for call sites that don't rely on prior ints.
func (d *Decoder) DecodeF32Matrix() ([][]float32, error) {
	rows, err := d.DecodeU32()
	if err != nil {
		return nil, err
	}
	cols, err := d.DecodeU32()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, rows)
	for r := range out {
		row, err := d.readF32s(int(cols))
		if err != nil {
			return nil, err
		}
		out[r] = row
	}
	return out, nil
}

// Remaining reports how many undecoded bytes are left in the buffer,
// used by the Control Client to check for and parse an optional error
// tail after a command's typed body.
func (d *Decoder) Remaining() int { return d.remaining() }

func (d *Decoder) RemainingBytes() []byte { return d.buf[d.off:] }

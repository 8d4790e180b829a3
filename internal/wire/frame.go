package wire

import (
	"encoding/binary"
	"fmt"
)

// CommandNameSize is the fixed width of the ASCII, zero-padded command
// name field in every request and response header.
const CommandNameSize = 32

// HeaderSize is the total size of a request/response header: the
// command name plus body-size (u32), response-expected (u16), and
// zero-padding (u16).
const HeaderSize = CommandNameSize + 4 + 2 + 2

// Header is the fixed-shape preamble of every Nanonis TCP message.
type Header struct {
	Command          string
	BodySize         uint32
	ResponseExpected bool
}

// WriteHeader encodes h into a fresh HeaderSize-byte slice. It returns
// an error if Command does not fit in CommandNameSize bytes.
func WriteHeader(h Header) ([]byte, error) {
	if len(h.Command) > CommandNameSize {
		return nil, fmt.Errorf("wire: command name %q exceeds %d bytes", h.Command, CommandNameSize)
	}
	buf := make([]byte, HeaderSize)
	copy(buf[:CommandNameSize], h.Command)
	binary.BigEndian.PutUint32(buf[CommandNameSize:CommandNameSize+4], h.BodySize)
	respExpected := uint16(0)
	if h.ResponseExpected {
		respExpected = 1
	}
	binary.BigEndian.PutUint16(buf[CommandNameSize+4:CommandNameSize+6], respExpected)
	binary.BigEndian.PutUint16(buf[CommandNameSize+6:CommandNameSize+8], 0)
	return buf, nil
}

// ParseHeader decodes a HeaderSize-byte slice into a Header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &ShortReadError{Kind: KindString, Need: HeaderSize, Have: len(buf)}
	}
	name := trimZeroPad(buf[:CommandNameSize])
	bodySize := binary.BigEndian.Uint32(buf[CommandNameSize : CommandNameSize+4])
	respExpected := binary.BigEndian.Uint16(buf[CommandNameSize+4 : CommandNameSize+6])
	return Header{
		Command:          name,
		BodySize:         bodySize,
		ResponseExpected: respExpected != 0,
	}, nil
}

func trimZeroPad(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// ErrorTail is the optional trailer a response may carry: a non-zero
// Status marks a server-side command failure, with Description giving
// the human-readable reason.
type ErrorTail struct {
	Status      int32
	Description string
}

// DecodeErrorTail reads a (status i32, size u32, description string)
// tail from the remainder of d, if any bytes remain. It returns
// ok=false when there is nothing left to decode, which is the normal
// case for commands with no error-reporting tail.
func DecodeErrorTail(d *Decoder) (tail ErrorTail, ok bool, err error) {
	if d.Remaining() == 0 {
		return ErrorTail{}, false, nil
	}
	status, err := d.DecodeI32()
	if err != nil {
		return ErrorTail{}, false, err
	}
	desc, err := d.DecodeString()
	if err != nil {
		return ErrorTail{}, false, err
	}
	return ErrorTail{Status: status, Description: desc}, true, nil
}

// BuildMessage frames a body under the given command name into a
// complete on-wire message: header followed by body.
func BuildMessage(command string, responseExpected bool, body []byte) ([]byte, error) {
	hdr, err := WriteHeader(Header{
		Command:          command,
		BodySize:         uint32(len(body)),
		ResponseExpected: responseExpected,
	})
	if err != nil {
		return nil, err
	}
	return append(hdr, body...), nil
}

package telemetry

import (
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"
)

func writeFrame(conn net.Conn, counter uint64, status Status, values []float32) error {
	hdr := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(values)))
	binary.BigEndian.PutUint32(hdr[4:8], math.Float32bits(1.0))
	binary.BigEndian.PutUint64(hdr[8:16], counter)
	binary.BigEndian.PutUint16(hdr[16:18], uint16(status))

	payload := make([]byte, len(values)*4)
	for i, v := range values {
		binary.BigEndian.PutUint32(payload[i*4:i*4+4], math.Float32bits(v))
	}

	_, err := conn.Write(append(hdr, payload...))
	return err
}

func TestReadFrameDecodesHeaderAndPayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- writeFrame(server, 42, StatusRunning, []float32{1.5, -2.5, 3.5})
	}()

	s := NewFromConn(client, 3, time.Second)
	frame, err := s.ReadFrame()
	if err := <-writeErr; err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Counter != 42 || frame.Status != StatusRunning {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if len(frame.Values) != 3 || frame.Values[1] != -2.5 {
		t.Fatalf("unexpected values: %v", frame.Values)
	}
}

func TestReadFrameRejectsChannelCountMismatch(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go writeFrame(server, 1, StatusRunning, []float32{1.0, 2.0})

	s := NewFromConn(client, 5, time.Second)
	_, err := s.ReadFrame()
	if err == nil {
		t.Fatalf("expected channel count mismatch error")
	}
}

package nanonis

import (
	"net"
	"testing"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/wire"
)

// fakeServer accepts one connection and answers every request with a
// fixed body, echoing the command name it saw for assertions.
type fakeServer struct {
	ln       net.Listener
	lastCmd  chan string
	respBody []byte
}

func newFakeServer(t *testing.T, respBody []byte) *fakeServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fs := &fakeServer{ln: ln, lastCmd: make(chan string, 8), respBody: respBody}
	go fs.serve()
	return fs
}

func (fs *fakeServer) serve() {
	conn, err := fs.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		hdrBuf := make([]byte, wire.HeaderSize)
		if err := readFull(conn, hdrBuf); err != nil {
			return
		}
		hdr, err := wire.ParseHeader(hdrBuf)
		if err != nil {
			return
		}
		body := make([]byte, hdr.BodySize)
		if err := readFull(conn, body); err != nil {
			return
		}
		fs.lastCmd <- hdr.Command

		resp, err := wire.BuildMessage(hdr.Command, true, fs.respBody)
		if err != nil {
			return
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func (fs *fakeServer) addr() string { return fs.ln.Addr().String() }

func (fs *fakeServer) close() { fs.ln.Close() }

func dialTestClient(t *testing.T, fs *fakeServer) *Client {
	host, portStr, _ := net.SplitHostPort(fs.addr())
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	cli, err := Dial(Config{Host: host, Port: port, ConnectTimeout: time.Second, ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return cli
}

func TestBiasSetSendsExpectedCommandName(t *testing.T) {
	fs := newFakeServer(t, nil)
	defer fs.close()
	cli := dialTestClient(t, fs)
	defer cli.Close()

	if err := cli.BiasSet(-0.5); err != nil {
		t.Fatalf("BiasSet: %v", err)
	}

	select {
	case cmd := <-fs.lastCmd:
		if cmd != "Bias.Set" {
			t.Fatalf("expected command Bias.Set, got %q", cmd)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for command")
	}
}

func TestBiasGetDecodesResponse(t *testing.T) {
	body := wire.Encode(nil, wire.NewF32(1.25))
	fs := newFakeServer(t, body)
	defer fs.close()
	cli := dialTestClient(t, fs)
	defer cli.Close()

	v, err := cli.BiasGet()
	if err != nil {
		t.Fatalf("BiasGet: %v", err)
	}
	if v != 1.25 {
		t.Fatalf("expected 1.25, got %v", v)
	}
}

func TestHardwareRejectSurfacesStatus(t *testing.T) {
	body := wire.Encode(nil, wire.NewI32(7))
	body = wire.Encode(body, wire.NewString("out of range"))
	fs := newFakeServer(t, body)
	defer fs.close()
	cli := dialTestClient(t, fs)
	defer cli.Close()

	err := cli.BiasSet(0)
	if err == nil {
		t.Fatalf("expected hardware reject error")
	}
	nerr, ok := err.(*Error)
	if !ok || nerr.Kind != KindHardwareReject || nerr.Status != 7 {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestSignalsValGetRejectsOutOfRangeIndex(t *testing.T) {
	fs := newFakeServer(t, nil)
	defer fs.close()
	cli := dialTestClient(t, fs)
	defer cli.Close()

	_, err := cli.SignalsValGet(200, false)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	nerr, ok := err.(*Error)
	if !ok || nerr.Kind != KindValidation {
		t.Fatalf("unexpected error: %#v", err)
	}
}

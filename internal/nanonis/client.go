// Package nanonis implements the control-plane TCP client for a Nanonis
// SPM controller: connection management, message framing via the wire
// package, and the command catalogue the Action Layer dispatches
// against.
package nanonis

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/wire"
)

// Config describes one control socket.
type Config struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
}

func (c Config) addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Client is a single TCP connection to a Nanonis control port. It
// serializes requests: only one command may be in flight at a time,
// matching the protocol's strict FIFO request/response contract.
type Client struct {
	mu   sync.Mutex
	cfg  Config
	conn net.Conn
	log  *slog.Logger
}

// Dial opens a control connection and returns a ready Client.
func Dial(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, validationError("host", "required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{cfg: cfg, log: cfg.Logger}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := net.DialTimeout("tcp", c.cfg.addr(), c.cfg.ConnectTimeout)
	if err != nil {
		return ioError("connect", err)
	}
	c.conn = conn
	c.log.Debug("nanonis: connected", "addr", c.cfg.addr())
	return nil
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call performs one framed request/response exchange; every request is
// sent with response-expected set and its response read back before
// call returns. On an IO or timeout failure
// it attempts exactly one transparent reconnect before surfacing the
// error, per the poisoned-connection policy: a timed-out read leaves
// the socket considered dead.
func (c *Client) call(command string, body []byte) (*wire.Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dec, err := c.doCall(command, body)
	if err == nil {
		return dec, nil
	}

	nerr, ok := err.(*Error)
	if !ok || !nerr.Retryable() {
		return nil, err
	}

	c.log.Warn("nanonis: reconnecting after transient error", "command", command, "err", err)
	_ = c.conn.Close()
	if cerr := c.connect(); cerr != nil {
		return nil, cerr
	}
	return c.doCall(command, body)
}

func (c *Client) doCall(command string, body []byte) (*wire.Decoder, error) {
	msg, err := wire.BuildMessage(command, true, body)
	if err != nil {
		return nil, protocolError(command, "build message", err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return nil, ioError(command, err)
	}

	if _, err := c.conn.Write(msg); err != nil {
		return nil, classifyIOErr(command, err)
	}

	hdrBuf := make([]byte, wire.HeaderSize)
	if err := readFull(c.conn, hdrBuf); err != nil {
		return nil, classifyIOErr(command, err)
	}

	hdr, err := wire.ParseHeader(hdrBuf)
	if err != nil {
		return nil, protocolError(command, "parse header", err)
	}

	bodyBuf := make([]byte, hdr.BodySize)
	if err := readFull(c.conn, bodyBuf); err != nil {
		return nil, classifyIOErr(command, err)
	}

	return wire.NewDecoder(bodyBuf), nil
}

func readFull(conn net.Conn, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

func classifyIOErr(command string, err error) *Error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return timeoutError(command, err)
	}
	return ioError(command, err)
}

// checkErrorTail inspects any bytes left in dec after the typed body
// has been consumed; a non-zero status is a HardwareReject.
func checkErrorTail(command string, dec *wire.Decoder) error {
	tail, ok, err := wire.DecodeErrorTail(dec)
	if err != nil {
		return protocolError(command, "decode error tail", err)
	}
	if ok && tail.Status != 0 {
		return hardwareRejectError(command, tail.Status, tail.Description)
	}
	return nil
}

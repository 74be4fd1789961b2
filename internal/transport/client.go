package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tamzrod/cve-gantry/internal/cve"
)

// Config is minimal transport config.
type Config struct {
	Endpoint string
	Timeout  time.Duration // dial and per-exchange I/O timeout; 0 = none

	// Dial retry bound. Attempts < 1 means one attempt.
	DialAttempts int
	DialBackoff  time.Duration
}

// Client owns one TCP connection to one controller.
// Exchanges are serialized: one request, then one blocking response.
type Client struct {
	mu       sync.Mutex
	conn     net.Conn
	endpoint string
	timeout  time.Duration
}

// Dial connects to cfg.Endpoint, retrying up to cfg.DialAttempts times.
// Address errors are not retried.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("transport: endpoint required")
	}

	attempts := cfg.DialAttempts
	if attempts < 1 {
		attempts = 1
	}

	d := net.Dialer{Timeout: cfg.Timeout}

	var last error
	for i := 1; i <= attempts; i++ {
		conn, err := d.DialContext(ctx, "tcp", cfg.Endpoint)
		if err == nil {
			return &Client{
				conn:     conn,
				endpoint: cfg.Endpoint,
				timeout:  cfg.Timeout,
			}, nil
		}
		last = err

		if !retryable(err) || ctx.Err() != nil || i == attempts {
			return nil, &ConnError{Endpoint: cfg.Endpoint, Op: "dial", Attempts: i, Err: last}
		}

		t := time.NewTimer(cfg.DialBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &ConnError{Endpoint: cfg.Endpoint, Op: "dial", Attempts: i, Err: ctx.Err()}
		case <-t.C:
		}
	}

	return nil, &ConnError{Endpoint: cfg.Endpoint, Op: "dial", Attempts: attempts, Err: last}
}

// New wraps an already connected net.Conn.
func New(conn net.Conn, timeout time.Duration) *Client {
	return &Client{
		conn:     conn,
		endpoint: conn.RemoteAddr().String(),
		timeout:  timeout,
	}
}

// Endpoint returns the remote address this client was created for.
func (c *Client) Endpoint() string { return c.endpoint }

// RoundTrip writes one request frame and reads exactly one response frame.
func (c *Client) RoundTrip(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, &ConnError{Endpoint: c.endpoint, Op: "write", Err: net.ErrClosed}
	}

	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := writeAll(c.conn, req); err != nil {
		return nil, &ConnError{Endpoint: c.endpoint, Op: "write", Err: err}
	}

	resp, err := cve.ReadFrame(c.conn)
	if err != nil {
		return nil, &ConnError{Endpoint: c.endpoint, Op: "read", Err: err}
	}
	return resp, nil
}

// Close closes the TCP connection. Safe to call more than once.
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

// ---- helpers ----

func writeAll(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func retryable(err error) bool {
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return false
	}
	return true
}

// ConnError reports a socket open/read/write failure.
type ConnError struct {
	Endpoint string
	Op       string
	Attempts int
	Err      error
}

func (e *ConnError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("transport: %s %s failed after %d attempts: %v", e.Op, e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// Package mpv drives an mpv player over its JSON IPC socket and exposes it as a
// media.Source.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultSocketPath is the default Unix socket path for mpv IPC.
	DefaultSocketPath = "/tmp/rangeclip-mpv.sock"

	dialInterval = 100 * time.Millisecond
)

var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mpv: not connected")
	// ErrSocketNotFound is returned when the socket cannot be dialled.
	ErrSocketNotFound = errors.New("mpv: socket not found - is mpv running with --input-ipc-server?")
	// ErrPropertyUnavailable is mpv's answer for properties without a value yet
	// (duration before metadata, time-pos while idle).
	ErrPropertyUnavailable = errors.New("mpv: property unavailable")

	requestID uint64
)

type ipcRequest struct {
	Command   []any  `json:"command"`
	RequestID uint64 `json:"request_id"`
}

type ipcResponse struct {
	Data      any    `json:"data"`
	RequestID uint64 `json:"request_id"`
	Error     string `json:"error"`
	Event     string `json:"event"`
}

// Client is an mpv IPC client. Commands are serialised on one connection.
type Client struct {
	socketPath string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewClient creates a client for socketPath, or DefaultSocketPath when empty.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{socketPath: socketPath}
}

// SocketPath returns the socket path this client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Connect dials the socket once.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSocketNotFound, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Dial retries Connect until it succeeds or ctx is done. mpv creates its
// socket some time after the process starts.
func (c *Client) Dial(ctx context.Context) error {
	for {
		err := c.Connect()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(dialInterval):
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// IsConnected reports whether the client holds a connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Command runs an arbitrary mpv command, e.g. Command("seek", 10, "absolute").
func (c *Client) Command(name string, args ...any) (any, error) {
	return c.send(append([]any{name}, args...))
}

// GetProperty retrieves the value of an mpv property.
func (c *Client) GetProperty(name string) (any, error) {
	return c.Command("get_property", name)
}

// SetProperty sets the value of an mpv property.
func (c *Client) SetProperty(name string, value any) error {
	_, err := c.Command("set_property", name, value)
	return err
}

// Float reads a numeric property.
func (c *Client) Float(name string) (float64, error) {
	v, err := c.GetProperty(name)
	if err != nil {
		return 0, err
	}
	return toFloat64(v)
}

// Bool reads a flag property.
func (c *Client) Bool(name string) (bool, error) {
	v, err := c.GetProperty(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("mpv: unexpected %s value type: %T", name, v)
	}
	return b, nil
}

// String reads a string property.
func (c *Client) String(name string) (string, error) {
	v, err := c.GetProperty(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("mpv: unexpected %s value type: %T", name, v)
	}
	return s, nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("mpv: unexpected numeric value type: %T", v)
	}
}

// send writes a newline terminated request and reads lines until the
// response carrying the same request_id arrives. Event lines are skipped.
func (c *Client) send(command []any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	id := atomic.AddUint64(&requestID, 1)
	data, err := json.Marshal(ipcRequest{Command: command, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("mpv: marshal command: %w", err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("mpv: send command: %w", err)
	}

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("mpv: read response: %w", err)
		}
		var resp ipcResponse
		if err := json.Unmarshal(line, &resp); err != nil || resp.Event != "" {
			continue
		}
		if resp.RequestID != id {
			continue
		}
		switch resp.Error {
		case "", "success":
			return resp.Data, nil
		case "property unavailable":
			return nil, ErrPropertyUnavailable
		default:
			return nil, fmt.Errorf("mpv: %v: %s", command[0], resp.Error)
		}
	}
}

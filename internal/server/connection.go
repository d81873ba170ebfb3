package server

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// ConnectionConfig holds per-connection settings.
type ConnectionConfig struct {
	IdleTimeout    time.Duration
	CommandTimeout time.Duration
	Logger         *slog.Logger
}

// Connection wraps a net.Conn with line-oriented framing and deadline
// management. It is the only point of contact with the network: the
// protocol layer reads and writes whole text lines through it.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	cfg    ConnectionConfig
	closed atomic.Bool
}

// NewConnection wraps conn with buffered line framing.
func NewConnection(conn net.Conn, cfg ConnectionConfig) *Connection {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		cfg:    cfg,
	}
}

// ReadLine consumes bytes until a newline or end-of-stream and returns
// the accumulated text with the terminator stripped. A trailing carriage
// return is stripped as well. If the peer closed the connection before
// producing a complete line, any partial text is returned without error;
// the next call reports io.EOF.
func (c *Connection) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// WriteLine appends a newline terminator to text, writes it, and
// flushes. A failed write is a transport fault and ends the session.
func (c *Connection) WriteLine(text string) error {
	if _, err := c.writer.WriteString(text); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// SetCommandTimeout arms the read deadline for the next command.
// A zero timeout disables the deadline.
func (c *Connection) SetCommandTimeout() error {
	if c.cfg.CommandTimeout <= 0 {
		return c.conn.SetReadDeadline(time.Time{})
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.cfg.CommandTimeout))
}

// ResetIdleTimeout extends the read deadline after activity.
func (c *Connection) ResetIdleTimeout() error {
	if c.cfg.IdleTimeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Logger returns the logger associated with this connection.
func (c *Connection) Logger() *slog.Logger {
	return c.cfg.Logger
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

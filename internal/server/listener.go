package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/twmailer/twmaild/internal/logging"
)

// ConnectionHandler processes a single accepted connection. It runs in
// its own goroutine and owns the connection until it returns.
type ConnectionHandler func(ctx context.Context, conn *Connection)

// ListenerConfig holds settings for a single listener.
type ListenerConfig struct {
	Address        string
	IdleTimeout    time.Duration
	CommandTimeout time.Duration
	MaxConnections int
	Logger         *slog.Logger
	Handler        ConnectionHandler
}

// Listener accepts TCP connections on one address and dispatches each
// accepted connection to the handler in a dedicated goroutine.
type Listener struct {
	cfg     ListenerConfig
	limiter *ConnectionLimiter

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewListener creates a Listener from the given configuration.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 100
	}
	return &Listener{
		cfg:     cfg,
		limiter: NewConnectionLimiter(cfg.MaxConnections),
	}
}

// Address returns the configured listen address.
func (l *Listener) Address() string {
	return l.cfg.Address
}

// Start binds the listen address and runs the accept loop until the
// context is cancelled or the listener is closed. Each accepted
// connection is handled in its own goroutine.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.cfg.Address)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.cfg.Logger.Info("listener started", slog.String("address", l.cfg.Address))

	// Close the listener when the context is cancelled so Accept unblocks.
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				l.wg.Wait()
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				return nil
			}
			l.cfg.Logger.Error("accept failed", slog.String("error", err.Error()))
			continue
		}

		if !l.limiter.TryAcquire() {
			l.cfg.Logger.Warn("connection rejected",
				slog.String("remote", conn.RemoteAddr().String()),
				slog.String("reason", ErrTooManyConnections.Error()),
			)
			_ = conn.Close()
			continue
		}

		l.wg.Add(1)
		go l.serve(ctx, conn)
	}
}

// serve wraps one accepted connection and runs the handler to completion.
func (l *Listener) serve(ctx context.Context, netConn net.Conn) {
	defer l.wg.Done()
	defer l.limiter.Release()

	logger := l.cfg.Logger.With(slog.String("remote", netConn.RemoteAddr().String()))

	conn := NewConnection(netConn, ConnectionConfig{
		IdleTimeout:    l.cfg.IdleTimeout,
		CommandTimeout: l.cfg.CommandTimeout,
		Logger:         logger,
	})
	defer func() {
		_ = conn.Close()
	}()

	l.cfg.Handler(logging.WithContext(ctx, logger), conn)
}

// Close stops accepting connections. In-flight handlers keep running;
// Start returns once they finish.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}

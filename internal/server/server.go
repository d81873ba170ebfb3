package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmailer/twmaild/internal/config"
	"github.com/twmailer/twmaild/internal/logging"
)

// Server coordinates multiple listeners and dispatches connections to
// the protocol handler.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler ConnectionHandler

	listeners []*Listener
	mu        sync.Mutex
}

// Config holds configuration for creating a new Server.
type Config struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(sc Config) (*Server, error) {
	logger := sc.Logger
	if logger == nil {
		logger = logging.NewLogger(sc.Cfg.LogLevel)
	}

	s := &Server{
		cfg:    sc.Cfg,
		logger: logger,
	}

	return s, nil
}

// SetHandler sets the connection handler for all listeners.
// Must be called before Run.
func (s *Server) SetHandler(handler ConnectionHandler) {
	s.handler = handler
}

// Handler returns the configured connection handler, or nil.
func (s *Server) Handler() ConnectionHandler {
	return s.handler
}

// Run starts all configured listeners and blocks until the context is
// cancelled. All listeners run in their own goroutines.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()

	if s.handler == nil {
		s.mu.Unlock()
		return fmt.Errorf("no connection handler configured")
	}

	for _, lc := range s.cfg.Listeners {
		listener := NewListener(ListenerConfig{
			Address:        lc.Address,
			IdleTimeout:    s.cfg.Timeouts.IdleTimeout(),
			CommandTimeout: s.cfg.Timeouts.CommandTimeout(),
			MaxConnections: s.cfg.Limits.MaxConnections,
			Logger:         s.logger,
			Handler:        s.handler,
		})
		s.listeners = append(s.listeners, listener)
	}

	s.mu.Unlock()

	s.logger.Info("starting server",
		slog.String("hostname", s.cfg.Hostname),
		slog.Int("listener_count", len(s.listeners)),
	)

	var wg sync.WaitGroup
	errChan := make(chan error, len(s.listeners))

	for _, l := range s.listeners {
		wg.Add(1)
		go func(listener *Listener) {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("listener %s: %w", listener.Address(), err)
			}
		}(l)
	}

	go func() {
		wg.Wait()
		close(errChan)
	}()

	// Block until cancellation, or until a listener fails outright
	// (a bind failure at startup is fatal to the whole server).
	var firstErr error
	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
	case err, ok := <-errChan:
		if ok && err != nil {
			firstErr = err
			s.logger.Error("listener error", slog.String("error", err.Error()))
		}
	}

	s.Shutdown()

	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
		s.logger.Error("listener error", slog.String("error", err.Error()))
	}

	s.logger.Info("server stopped")

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// Shutdown gracefully stops the server.
// It closes all listeners and waits for connections to complete.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listeners {
		_ = l.Close()
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Config returns the server's configuration.
func (s *Server) Config() *config.Config {
	return s.cfg
}

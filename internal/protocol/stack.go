package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/twmailer/twmaild/internal/config"
	"github.com/twmailer/twmaild/internal/logging"
	"github.com/twmailer/twmaild/internal/metrics"
	"github.com/twmailer/twmaild/internal/server"
	"github.com/twmailer/twmaild/internal/spool"
)

// StackConfig groups the configuration needed to build a Stack.
type StackConfig struct {
	Config    config.Config
	Store     *spool.Store      // overrides Config.Spool when non-nil
	Collector metrics.Collector // nil → NoopCollector
	Logger    *slog.Logger      // nil → slog.Default()
}

// Stack owns all components of a running twmaild instance and manages
// their lifecycle.
type Stack struct {
	server *server.Server
	store  *spool.Store
	logger *slog.Logger
}

// NewStack creates a Stack from the given configuration, wiring up all
// components. Failure to open the spool root is fatal.
func NewStack(cfg StackConfig) (*Stack, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	collector := cfg.Collector
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}

	store := cfg.Store
	if store == nil {
		var err error
		store, err = spool.Open(cfg.Config.Spool)
		if err != nil {
			return nil, err
		}
		logger.Info("spool opened", "path", cfg.Config.Spool)
	}

	srv, err := server.New(server.Config{
		Cfg:    &cfg.Config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	srv.SetHandler(Handler(store, collector))

	return &Stack{
		server: srv,
		store:  store,
		logger: logger,
	}, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Stack) Run(ctx context.Context) error {
	return s.server.Run(ctx)
}

// Store returns the stack's mailbox store.
func (s *Stack) Store() *spool.Store {
	return s.store
}

// RunSingleConn processes exactly one session on the given connection.
// Used by tests to drive the full protocol over an in-memory pipe.
func (s *Stack) RunSingleConn(ctx context.Context, conn net.Conn) error {
	handler := s.server.Handler()
	if handler == nil {
		return fmt.Errorf("no handler configured on server")
	}

	cfg := s.server.Config()
	c := server.NewConnection(conn, server.ConnectionConfig{
		IdleTimeout:    cfg.Timeouts.IdleTimeout(),
		CommandTimeout: cfg.Timeouts.CommandTimeout(),
		Logger:         s.logger,
	})
	defer func() {
		_ = c.Close()
	}()

	handler(logging.WithContext(ctx, s.logger), c)
	return nil
}

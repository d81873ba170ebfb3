package protocol

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/twmailer/twmaild/internal/logging"
	"github.com/twmailer/twmaild/internal/metrics"
	"github.com/twmailer/twmaild/internal/server"
	"github.com/twmailer/twmaild/internal/spool"
)

// Handler creates the protocol connection handler backed by the given
// mailbox store.
func Handler(store *spool.Store, collector metrics.Collector) server.ConnectionHandler {
	RegisterCommands()

	return func(ctx context.Context, conn *server.Connection) {
		handleConnection(ctx, conn, store, collector)
	}
}

// handleConnection runs one session's command loop to completion.
func handleConnection(ctx context.Context, conn *server.Connection, store *spool.Store, collector metrics.Collector) {
	logger := logging.FromContext(ctx)

	collector.ConnectionOpened()
	defer collector.ConnectionClosed()

	sess := NewSession(store, collector)
	defer sess.Close()

	logger.Info("client connected")
	defer logger.Info("client disconnected")

	for {
		// Check if context is cancelled
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, closing connection")
			return
		default:
		}

		if conn.IsClosed() {
			return
		}

		if err := conn.SetCommandTimeout(); err != nil {
			logger.Error("failed to set command timeout", "error", err.Error())
			return
		}

		verb, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("client closed connection")
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Info("command timeout, closing connection")
				return
			}
			logger.Error("error reading command", "error", err.Error())
			return
		}

		// An empty frame means the peer disconnected mid-line or sent a
		// blank command; either way the session ends.
		if verb == "" {
			logger.Info("empty command line, closing connection")
			return
		}

		if err := conn.ResetIdleTimeout(); err != nil {
			logger.Error("failed to reset idle timeout", "error", err.Error())
			return
		}

		logger.Debug("received command", "verb", verb)
		collector.CommandProcessed(verb)

		cmd, ok := GetCommand(verb)
		if !ok {
			if err := (Response{Status: StatusErr}).Send(conn); err != nil {
				return
			}
			continue
		}

		sess.BeginCommand(verb)
		resp, err := cmd.Execute(ctx, sess, conn)
		sess.EndCommand()
		if err != nil {
			// Transport fault mid-exchange: never reported to the peer,
			// the channel is already gone.
			logger.Error("command aborted",
				"verb", verb,
				"error", err.Error(),
			)
			return
		}

		if err := resp.Send(conn); err != nil {
			logger.Error("failed to send response", "error", err.Error())
			return
		}

		logger.Debug("sent response",
			"verb", verb,
			"status", resp.Status,
			"lines", len(resp.Lines),
		)

		if sess.State() == StateClosed {
			logger.Info("QUIT received, closing connection")
			return
		}
	}
}

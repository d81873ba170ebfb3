// Package metrics provides interfaces and implementations for collecting
// mail server metrics. This package defines the Collector interface for
// recording metrics and the Server interface for exposing them.
package metrics

import "context"

// Collector defines the interface for recording mail server metrics.
type Collector interface {
	// Connection metrics
	ConnectionOpened()
	ConnectionClosed()

	// Command metrics
	CommandProcessed(command string)

	// Message metrics
	MessageDelivered(sizeBytes int64)
	MessageListed()
	MessageRetrieved()
	MessageDeleted()
}

// Server defines the interface for a metrics HTTP server.
type Server interface {
	// Start begins serving metrics. It blocks until the context is canceled
	// or an error occurs.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the metrics server.
	Shutdown(ctx context.Context) error
}

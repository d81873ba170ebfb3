package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

// ConnectionOpened is a no-op.
func (n *NoopCollector) ConnectionOpened() {}

// ConnectionClosed is a no-op.
func (n *NoopCollector) ConnectionClosed() {}

// CommandProcessed is a no-op.
func (n *NoopCollector) CommandProcessed(command string) {}

// MessageDelivered is a no-op.
func (n *NoopCollector) MessageDelivered(sizeBytes int64) {}

// MessageListed is a no-op.
func (n *NoopCollector) MessageListed() {}

// MessageRetrieved is a no-op.
func (n *NoopCollector) MessageRetrieved() {}

// MessageDeleted is a no-op.
func (n *NoopCollector) MessageDeleted() {}

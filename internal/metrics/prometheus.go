package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	// Connection metrics
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge

	// Command metrics
	commandsTotal *prometheus.CounterVec

	// Message metrics
	messagesDeliveredTotal prometheus.Counter
	messagesListedTotal    prometheus.Counter
	messagesRetrievedTotal prometheus.Counter
	messagesDeletedTotal   prometheus.Counter
	messagesSizeBytes      prometheus.Histogram
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twmaild_connections_total",
			Help: "Total number of client connections opened.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "twmaild_connections_active",
			Help: "Number of currently active client connections.",
		}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twmaild_commands_total",
			Help: "Total number of protocol commands processed.",
		}, []string{"command"}),

		messagesDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twmaild_messages_delivered_total",
			Help: "Total number of messages accepted into the spool.",
		}),
		messagesListedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twmaild_messages_listed_total",
			Help: "Total number of mailbox list operations.",
		}),
		messagesRetrievedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twmaild_messages_retrieved_total",
			Help: "Total number of messages read.",
		}),
		messagesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twmaild_messages_deleted_total",
			Help: "Total number of messages deleted.",
		}),
		messagesSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "twmaild_messages_size_bytes",
			Help:    "Size of delivered messages in bytes.",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		}),
	}

	// Register all metrics
	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.commandsTotal,
		c.messagesDeliveredTotal,
		c.messagesListedTotal,
		c.messagesRetrievedTotal,
		c.messagesDeletedTotal,
		c.messagesSizeBytes,
	)

	return c
}

// ConnectionOpened increments the connection counter and active gauge.
func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// ConnectionClosed decrements the active connections gauge.
func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// CommandProcessed increments the command counter.
func (c *PrometheusCollector) CommandProcessed(command string) {
	c.commandsTotal.WithLabelValues(command).Inc()
}

// MessageDelivered increments the delivery counter and observes message size.
func (c *PrometheusCollector) MessageDelivered(sizeBytes int64) {
	c.messagesDeliveredTotal.Inc()
	c.messagesSizeBytes.Observe(float64(sizeBytes))
}

// MessageListed increments the list counter.
func (c *PrometheusCollector) MessageListed() {
	c.messagesListedTotal.Inc()
}

// MessageRetrieved increments the retrieval counter.
func (c *PrometheusCollector) MessageRetrieved() {
	c.messagesRetrievedTotal.Inc()
}

// MessageDeleted increments the deletion counter.
func (c *PrometheusCollector) MessageDeleted() {
	c.messagesDeletedTotal.Inc()
}

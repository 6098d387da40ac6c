package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsTotal       = "change_stream_events_total"
	MetricDecodeErrorsTotal = "change_stream_decode_errors_total"
	MetricReconnectsTotal   = "change_stream_reconnects_total"
	MetricDroppedTotal      = "change_stream_dropped_events_total"
	MetricSubscribers       = "change_stream_subscribers"
)

// Metrics contains Prometheus metrics for the change stream.
// All operations are thread-safe.
type Metrics struct {
	eventsTotal  *prometheus.CounterVec
	decodeErrors prometheus.Counter
	reconnects   prometheus.Counter
	dropped      prometheus.Counter
	subscribers  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsTotal,
				Help: "Total change events received by entity and kind",
			},
			[]string{"entity", "kind"},
		),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDecodeErrorsTotal,
			Help: "Total stream frames that failed CBOR decoding or validation",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricReconnectsTotal,
			Help: "Total websocket reconnection attempts",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDroppedTotal,
			Help: "Total events dropped because a subscriber channel was full",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSubscribers,
			Help: "Current number of broker subscribers",
		}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsTotal,
		m.decodeErrors,
		m.reconnects,
		m.dropped,
		m.subscribers,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEvent counts one received event.
func (m *Metrics) IncEvent(entity string, kind EventKind) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(entity, string(kind)).Inc()
}

// IncDecodeError counts one undecodable frame.
func (m *Metrics) IncDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// IncReconnect counts one reconnection attempt.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// IncDropped counts one event dropped on a full subscriber channel.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// SetSubscribers records the current subscriber count.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

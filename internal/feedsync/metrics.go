package feedsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRefreshesTotal          = "feedsync_refreshes_total"
	MetricFetchErrorsTotal        = "feedsync_fetch_errors_total"
	MetricOptimisticRemovalsTotal = "feedsync_optimistic_removals_total"
	MetricCoalescedEventsTotal    = "feedsync_coalesced_events_total"
)

// Refresh mode label values.
const (
	ModeBackground = "background"
	ModeForeground = "foreground"
)

// Metrics contains Prometheus metrics for feed synchronization.
// All operations are thread-safe.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	fetchErrors prometheus.Counter
	removals    prometheus.Counter
	coalesced   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRefreshesTotal,
				Help: "Total feed re-fetches by mode",
			},
			[]string{"mode"},
		),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFetchErrorsTotal,
			Help: "Total feed re-fetches that returned an error",
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricOptimisticRemovalsTotal,
			Help: "Total items removed optimistically on delete notifications",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCoalescedEventsTotal,
			Help: "Total change events absorbed into an already pending re-fetch",
		}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.refreshes,
		m.fetchErrors,
		m.removals,
		m.coalesced,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRefresh counts one re-fetch in the given mode.
func (m *Metrics) IncRefresh(mode string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(mode).Inc()
}

// IncFetchError counts one failed re-fetch.
func (m *Metrics) IncFetchError() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

// IncOptimisticRemoval counts one synchronous delete removal.
func (m *Metrics) IncOptimisticRemoval() {
	if m == nil {
		return
	}
	m.removals.Inc()
}

// IncCoalesced counts one event that restarted or joined a pending cycle.
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

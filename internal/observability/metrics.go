package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coastal_monitor"

// Metrics holds the Prometheus collectors for the monitor.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: source={provider,backend}, kind={currents,threats}, outcome={success,error,timeout}
	UpstreamDuration *prometheus.HistogramVec // labels: source
	Fallbacks        *prometheus.CounterVec   // labels: kind
	StaleDiscards    *prometheus.CounterVec   // labels: kind
	SeriesLength     *prometheus.GaugeVec     // labels: station
	ThreatEvents     *prometheus.CounterVec   // labels: type
	AlertsPublished  prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound requests by source, data kind and outcome.",
		}, []string{"source", "kind", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outbound request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Times the secondary source was tried after the first failed.",
		}, []string{"kind"}),
		StaleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_discards_total",
			Help:      "Results dropped because a newer request superseded them.",
		}, []string{"kind"}),
		SeriesLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_observations",
			Help:      "Observations currently retained per station.",
		}, []string{"station"}),
		ThreatEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threat_events_total",
			Help:      "Threat events raised by type.",
		}, []string{"type"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Threat assessments published to the alerts topic.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.Fallbacks,
		m.StaleDiscards,
		m.SeriesLength,
		m.ThreatEvents,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

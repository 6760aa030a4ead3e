package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sea_info"

// Metrics holds the Prometheus counters and histograms for the sea-info service.
type Metrics struct {
	// Lookup metrics.
	Lookups        *prometheus.CounterVec // labels: outcome={ok,partial,invalid,sample,error}
	LookupDuration prometheus.Histogram
	Cache          *prometheus.CounterVec // labels: result={hit,miss,bypass}
	StationsReady  prometheus.Gauge

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source, outcome={success,error,empty,rate_limited}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	// Fallback metrics.
	FallbackSteps *prometheus.CounterVec // labels: domain={weather,tide,ocean}, step
	Sampled       *prometheus.CounterVec // labels: field

	// Publisher metrics.
	RecordsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.Lookups,
		m.LookupDuration,
		m.Cache,
		m.StationsReady,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.FallbackSteps,
		m.Sampled,
		m.RecordsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      help("Sea-info lookups by outcome."),
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      help("Duration of a full aggregation, cache hits included."),
			Buckets:   []float64{0.005, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      help("Result cache lookups by result."),
		}, []string{"result"}),
		StationsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_ready",
			Help:      help("1 when the station tables are loaded, 0 otherwise."),
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      help("Upstream API requests by source and outcome."),
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      help("Upstream API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		FallbackSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_steps_total",
			Help:      help("Fallback chain steps that supplied data, by domain and step."),
		}, []string{"domain", "step"}),
		Sampled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sampled_total",
			Help:      help("Weather fields answered with filler values."),
		}, []string{"field"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      help("Aggregated records written to Kafka by outcome."),
		}, []string{"outcome"}),
	}
}

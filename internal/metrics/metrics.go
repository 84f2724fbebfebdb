package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "disaster_watch"

// Metrics holds the Prometheus collectors shared by ingestion, refresh, and the API.
type Metrics struct {
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source
	EventsAggregated    prometheus.Gauge
	EventsArchived      prometheus.Counter
	EventsPublished     prometheus.Counter
	StreamSubscribers   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Upstream feed fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Upstream feed fetch duration, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		EventsAggregated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_aggregated",
			Help:      "Number of events returned by the most recent aggregation.",
		}),
		EventsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_archived_total",
			Help:      "Newly seen events written to the archive.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to Kafka.",
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Currently connected live stream clients.",
		}),
	}
}

// New creates all collectors and registers them with the default Prometheus registry.
func New() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.EventsAggregated,
		m.EventsArchived,
		m.EventsPublished,
		m.StreamSubscribers,
	)
	return m
}

// NewForTesting returns unregistered collectors so tests can build as many as they like.
func NewForTesting() *Metrics {
	return newMetrics()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec // labels: outcome={success,error}
	AssessmentDuration prometheus.Histogram
	HotspotPixels      prometheus.Gauge
	ValidPixelRatio    *prometheus.GaugeVec // labels: band={drought_index,fdci}

	// Observation catalog metrics.
	SourceFetchTotal    *prometheus.CounterVec   // labels: band, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: band
	SourceCacheTotal    *prometheus.CounterVec   // labels: result={hit,miss}

	// Alerting and scheduling.
	AlertsPublished  prometheus.Counter
	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentDuration,
		m.HotspotPixels,
		m.ValidPixelRatio,
		m.SourceFetchTotal,
		m.SourceFetchDuration,
		m.SourceCacheTotal,
		m.AlertsPublished,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtfire",
			Name:      "assessments_total",
			Help:      "Completed per-date assessments by outcome.",
		}, []string{"outcome"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "droughtfire",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a complete per-date assessment.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		HotspotPixels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "droughtfire",
			Name:      "hotspot_pixels",
			Help:      "Hotspot pixel count of the most recent assessment.",
		}),
		ValidPixelRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "droughtfire",
			Name:      "valid_pixel_ratio",
			Help:      "Fraction of unmasked pixels per output band, most recent assessment.",
		}, []string{"band"}),
		SourceFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtfire",
			Name:      "source_fetch_total",
			Help:      "Observation stream fetches by band and outcome.",
		}, []string{"band", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "droughtfire",
			Name:      "source_fetch_duration_seconds",
			Help:      "Observation catalog request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"band"}),
		SourceCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtfire",
			Name:      "source_cache_total",
			Help:      "Observation window cache lookups by result.",
		}, []string{"result"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "droughtfire",
			Name:      "alerts_published_total",
			Help:      "Hotspot alert summaries published to Kafka.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "droughtfire",
			Name:      "scheduler_running",
			Help:      "1 when the daily scheduler is active, 0 when shut down.",
		}),
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// extraction batch.
type Metrics struct {
	ImagesProcessed      prometheus.Counter
	ImagesSkipped        prometheus.Counter // output already existed
	MapDetectionFailures prometheus.Counter
	BulletinsWritten     prometheus.Counter
	ReadingsDegraded     prometheus.Counter // readings written as all-null
	BatchRunning         prometheus.Gauge

	ImageProcessingDuration prometheus.Histogram

	// Inference-service metrics.
	InferenceRequests *prometheus.CounterVec   // labels: mode={legend,station}, outcome={success,error,unparseable}
	InferenceDuration *prometheus.HistogramVec // labels: mode={legend,station}
}

// NewMetrics creates and registers all batch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "images_processed_total",
			Help:      "Total map images fully processed into a bulletin.",
		}),
		ImagesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "images_skipped_total",
			Help:      "Total map images skipped because their bulletin already existed.",
		}),
		MapDetectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "map_detection_failures_total",
			Help:      "Total images where no valid map bounding box was found.",
		}),
		BulletinsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "bulletins_written_total",
			Help:      "Total bulletin files written.",
		}),
		ReadingsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "readings_degraded_total",
			Help:      "Total station readings written with all fields null.",
		}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bulletin_etl",
			Name:      "batch_running",
			Help:      "1 while an extraction batch is active, 0 otherwise.",
		}),
		ImageProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bulletin_etl",
			Name:      "image_processing_duration_seconds",
			Help:      "Duration of one image's locate-legend-extract-write cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		InferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulletin_etl",
			Name:      "inference_requests_total",
			Help:      "Vision-inference calls by mode and outcome.",
		}, []string{"mode", "outcome"}),
		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bulletin_etl",
			Name:      "inference_duration_seconds",
			Help:      "Vision-inference request duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"mode"}),
	}

	prometheus.MustRegister(
		m.ImagesProcessed,
		m.ImagesSkipped,
		m.MapDetectionFailures,
		m.BulletinsWritten,
		m.ReadingsDegraded,
		m.BatchRunning,
		m.ImageProcessingDuration,
		m.InferenceRequests,
		m.InferenceDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ImagesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "images_processed_total"}),
		ImagesSkipped:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "images_skipped_total"}),
		MapDetectionFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "map_detection_failures_total"}),
		BulletinsWritten:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "bulletins_written_total"}),
		ReadingsDegraded:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "readings_degraded_total"}),
		BatchRunning:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "bulletin_etl", Name: "batch_running"}),
		ImageProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "bulletin_etl", Name: "image_processing_duration_seconds"}),
		InferenceRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "bulletin_etl", Name: "inference_requests_total"}, []string{"mode", "outcome"}),
		InferenceDuration:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "bulletin_etl", Name: "inference_duration_seconds"}, []string{"mode"}),
	}
}

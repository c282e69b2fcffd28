package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels for remote model calls.
const (
	OpTranscribe = "transcribe"
	OpSummarize  = "summarize"
)

// Metrics contains all Prometheus metrics for the transcription session.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Remote model calls
	RemoteCalls    *prometheus.CounterVec
	RemoteRetries  *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec

	// Batch runs
	BatchRuns     *prometheus.CounterVec
	BatchFiles    prometheus.Counter
	BatchDuration prometheus.Histogram

	// Queue
	QueuedFiles  prometheus.Gauge
	LivePreviews prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RemoteCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemerge_remote_calls_total",
			Help: "Total number of remote model calls by operation and result",
		}, []string{"operation", "result"}),
		RemoteRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemerge_remote_retries_total",
			Help: "Total number of rate-limit retries by operation",
		}, []string{"operation"}),
		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicemerge_remote_call_duration_seconds",
			Help:    "Duration of remote model calls including retries",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"operation"}),

		BatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemerge_batch_runs_total",
			Help: "Total number of batch transcription runs by result",
		}, []string{"result"}),
		BatchFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicemerge_batch_files_transcribed_total",
			Help: "Total number of files transcribed successfully",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicemerge_batch_duration_seconds",
			Help:    "Wall time of batch transcription runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),

		QueuedFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicemerge_queued_files",
			Help: "Current number of audio files in the queue",
		}),
		LivePreviews: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicemerge_live_previews",
			Help: "Current number of unreleased preview references",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records one remote call outcome.
func (m *Metrics) ObserveCall(operation string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RemoteCalls.WithLabelValues(operation, result).Inc()
	m.RemoteDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRetry records one rate-limit retry.
func (m *Metrics) ObserveRetry(operation string) {
	m.RemoteRetries.WithLabelValues(operation).Inc()
}

// ObserveBatch records a finished batch run.
func (m *Metrics) ObserveBatch(err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.BatchRuns.WithLabelValues(result).Inc()
	m.BatchDuration.Observe(elapsed.Seconds())
}

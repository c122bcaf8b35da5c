// Package metrics exposes Prometheus instrumentation for CSV ingestion.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row outcomes used as the "outcome" label.
const (
	OutcomeInserted      = "inserted"
	OutcomeValidation    = "validation"
	OutcomeDuplicate     = "duplicate"
	OutcomeFailed        = "failed"
	OutcomeInvalidFormat = "invalid_format"
)

type ingestMetrics struct {
	rowsTotal     *prometheus.CounterVec
	uploadsTotal  *prometheus.CounterVec
	batchLatency  *prometheus.HistogramVec
	bytesTotal    prometheus.Counter
	uploadsActive prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *ingestMetrics {
	return &ingestMetrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custingest",
			Name:      "rows_total",
			Help:      "Total number of CSV data rows by outcome.",
		}, []string{"outcome"}),
		uploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custingest",
			Name:      "uploads_total",
			Help:      "Total number of ingestions by result.",
		}, []string{"result"}),
		batchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "custingest",
			Name:      "batch_duration_seconds",
			Help:      "Time spent validating, deduplicating and inserting one batch.",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30,
			},
		}, []string{"result"}),
		bytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "custingest",
			Name:      "bytes_read_total",
			Help:      "Total number of upload bytes read.",
		}),
		uploadsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "custingest",
			Name:      "uploads_active",
			Help:      "Number of ingestions currently running.",
		}),
	}
})

func get() *ingestMetrics { return metricsSingleton() }

// AddRows counts n rows with the given outcome. Zero counts are ignored.
func AddRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	get().rowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatch records the duration of one batch; result is "ok" or "error".
func ObserveBatch(d time.Duration, result string) {
	get().batchLatency.WithLabelValues(result).Observe(d.Seconds())
}

// UploadStarted marks an ingestion as running.
func UploadStarted() {
	get().uploadsActive.Inc()
}

// UploadFinished marks an ingestion as done and counts its bytes and result.
func UploadFinished(result string, bytesRead int64) {
	m := get()
	m.uploadsActive.Dec()
	m.uploadsTotal.WithLabelValues(result).Inc()
	if bytesRead > 0 {
		m.bytesTotal.Add(float64(bytesRead))
	}
}

// Handler serves the default registry. The ingestion collectors are
// registered first so they are scraped before the first upload.
func Handler() http.Handler {
	get()
	return promhttp.Handler()
}

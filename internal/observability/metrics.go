// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Import metrics
	RowsProcessed     *prometheus.CounterVec
	RecordsSaved      *prometheus.CounterVec
	RecordsSkipped    prometheus.Counter
	DuplicatesRemoved prometheus.Counter
	BatchRetries      prometheus.Counter
	FilesProcessed    *prometheus.CounterVec
	ImportDuration    *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "futures_tick_lab"
	}

	return &Metrics{
		RowsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_processed_total",
			Help:      "Total number of vendor rows processed by result",
		}, []string{"result"}),
		RecordsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "records_saved_total",
			Help:      "Total number of records persisted by kind",
		}, []string{"kind"}),
		RecordsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped as already stored",
		}),
		DuplicatesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duplicates_removed_total",
			Help:      "Total number of intra-file duplicate rows removed",
		}),
		BatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "batch_retries_total",
			Help:      "Total number of failed batches retried record by record",
		}),
		FilesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "files_processed_total",
			Help:      "Total number of vendor files processed by status",
		}, []string{"status"}),
		ImportDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Per-file import duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Row result labels for RowsProcessed.
const (
	RowValid     = "valid"
	RowRejected  = "rejected"
	RowDuplicate = "duplicate"
)

// File status labels for FilesProcessed.
const (
	FileOK     = "ok"
	FileFailed = "failed"
)

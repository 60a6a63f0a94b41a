package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Object storage and orphan ledger metrics
var (
	// BlobOperations counts object storage calls by operation and result
	BlobOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Total number of object storage operations",
		},
		[]string{"operation", "result"}, // operation: put|delete, result: success|error
	)

	// BlobOperationDuration records object storage latency
	BlobOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blob_operation_duration_seconds",
			Help:      "Object storage operation latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// BlobBytesUploaded counts bytes written to object storage
	BlobBytesUploaded = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_uploaded_bytes_total",
			Help:      "Total bytes uploaded to object storage",
		},
	)

	// OrphansRecorded counts blob keys added to the orphan ledger
	OrphansRecorded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_blobs_recorded_total",
			Help:      "Total number of blob keys recorded as orphans",
		},
		[]string{"reason"},
	)

	// OrphansSwept counts orphan sweep outcomes per key
	OrphansSwept = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_blobs_swept_total",
			Help:      "Total number of orphan blob keys processed by the sweep",
		},
		[]string{"result"}, // result: deleted|failed|abandoned
	)
)

// RecordBlobOperation records the outcome of one object storage call:
//
//	start := time.Now()
//	err := client.PutObject(...)
//	metrics.RecordBlobOperation("put", start, err)
func RecordBlobOperation(operation string, start time.Time, err error) {
	BlobOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	BlobOperations.WithLabelValues(operation, result).Inc()
}

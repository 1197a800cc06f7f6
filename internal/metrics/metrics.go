package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docextract_documents_total",
			Help: "Documents processed, by final run status",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docextract_extraction_seconds",
		Help:    "Wall time of one extraction run",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	BackendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docextract_backend_failures_total",
			Help: "OCR engine or LLM calls that produced no contribution",
		},
		[]string{"backend"},
	)

	LLMContributions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docextract_llm_contributions_total",
		Help: "Runs where the LLM pass contributed at least one field",
	})

	ConsistencyWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docextract_consistency_warnings_total",
		Help: "Runs whose subtotal plus taxes did not match the reported total",
	})

	DroppedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docextract_dropped_item_rows_total",
		Help: "Item table rows dropped for lacking a description",
	})

	DiscardedFields = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docextract_discarded_fields_total",
			Help: "Field values discarded by shape validation",
		},
		[]string{"source"},
	)

	// Batch metrics
	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docextract_queue_length",
		Help: "Number of documents waiting to be processed",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattpipe_batches_processed_total",
			Help: "Total batch files processed",
		},
		[]string{"source", "status"},
	)

	RecordsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattpipe_records_stored_total",
			Help: "Total site records upserted",
		},
		[]string{"source"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattpipe_records_skipped_total",
			Help: "Total readings skipped for missing required fields",
		},
		[]string{"source"},
	)

	RecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattpipe_records_failed_total",
			Help: "Total readings that failed at a gateway",
		},
		[]string{"source", "stage"},
	)

	AlertsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattpipe_alerts_sent_total",
			Help: "Total anomaly alerts delivered",
		},
	)
)

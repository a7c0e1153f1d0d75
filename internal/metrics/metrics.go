package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Block status label values.
const (
	StatusOK      = "ok"
	StatusMissing = "missing"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	BlocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solana_etl",
		Subsystem: "runner",
		Name:      "blocks_total",
		Help:      "Total block files handled, by outcome",
	}, []string{"status"})

	RowsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solana_etl",
		Subsystem: "transform",
		Name:      "rows_total",
		Help:      "Total data rows produced per task",
	}, []string{"task"})

	ErrorRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solana_etl",
		Subsystem: "transform",
		Name:      "error_rows_total",
		Help:      "Total error rows per stage",
	}, []string{"stage"})

	BlockLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "solana_etl",
		Subsystem: "runner",
		Name:      "block_duration_seconds",
		Help:      "Time to read and transform one block file",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)

// Package metrics provides Prometheus metrics for the logging session:
// ingest volume, row emission, flush cadence, and scheduler timing health.
// All collectors are registered at package init via promauto and are safe
// for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIngested counts decoded messages handed over by the decoder,
	// labeled by message group id.
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honkeypi_messages_ingested_total",
			Help: "Total number of decoded messages ingested",
		},
		[]string{"pgn"},
	)

	// FieldsMapped counts buffer writes produced by the field mapper.
	FieldsMapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honkeypi_fields_mapped_total",
			Help: "Total number of fields routed into schema columns",
		},
	)

	// RowsWritten counts rows appended to the session file, by outcome.
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honkeypi_rows_written_total",
			Help: "Total number of rows written to the session file",
		},
		[]string{"status"},
	)

	// TimingErrors counts scheduler ticks that woke later than the
	// tolerance allows.
	TimingErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honkeypi_timing_errors_total",
			Help: "Total number of scheduler ticks exceeding the lateness tolerance",
		},
	)

	// CumulativeDrift accumulates the lateness of overrun ticks.
	CumulativeDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honkeypi_cumulative_drift_seconds_total",
			Help: "Accumulated lateness of overrun scheduler ticks in seconds",
		},
	)

	// SinkFlushes counts explicit flushes of the session file.
	SinkFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honkeypi_sink_flushes_total",
			Help: "Total number of explicit session file flushes",
		},
	)

	// FlushDuration tracks how long each session file flush takes,
	// including the fsync.
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "honkeypi_sink_flush_duration_seconds",
			Help: "Duration of session file flushes including fsync",
			Buckets: []float64{
				0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
			},
		},
	)

	// TickLatency tracks how late each scheduler tick fired relative to
	// its grid target.
	TickLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "honkeypi_tick_latency_seconds",
			Help: "Lateness of scheduler wake-ups relative to the 1 Hz grid",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2,
			},
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since the timer was created.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

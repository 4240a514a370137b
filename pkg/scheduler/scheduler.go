// Package scheduler runs the fixed-cadence sampling loop: once per
// interval it snapshots the latest-value buffer and hands the row to the
// sink, stamped with the grid target instant.
//
// The loop is drift-free by construction: iteration n sleeps until
// start + n*interval, computed from the fixed baseline rather than from
// the previous wake-up, so jitter in one iteration never accumulates into
// the next. A wake-up later than the tolerance is counted as a timing
// error and its lateness added to the cumulative drift, but the emitted
// row still carries the ideal grid timestamp.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
	"github.com/efhkdmbc/honkey-pi/pkg/metrics"
	"github.com/efhkdmbc/honkey-pi/pkg/sink"
)

// Clock abstracts wall-clock access so tests can drive the loop
// deterministically.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
	// Until returns a channel that fires at or after t.
	Until(t time.Time) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Until(t time.Time) <-chan time.Time {
	return time.After(time.Until(t))
}

// RowWriter consumes sampled rows. *sink.CSVSink implements it.
type RowWriter interface {
	WriteRow(row sink.Row) error
	Flush() error
}

// TimingStats is the scheduler's timing-error accounting, readable by the
// status surface while the loop runs.
type TimingStats struct {
	// Iterations is the number of ticks completed
	Iterations int64 `json:"iterations"`
	// TimingErrors counts ticks that woke later than the tolerance
	TimingErrors int64 `json:"timing_errors"`
	// CumulativeDrift is the summed lateness of overrun ticks
	CumulativeDrift time.Duration `json:"cumulative_drift"`
}

// Config controls a scheduler.
type Config struct {
	// Interval is the row cadence (default one second)
	Interval time.Duration
	// Tolerance is the allowed lateness before a tick counts as a timing
	// error (default 200ms)
	Tolerance time.Duration
	// Clock overrides wall-clock access; nil uses the real clock
	Clock Clock
}

// Scheduler is the 1 Hz sampling loop. Stopped → Running → Stopped; a
// stopped scheduler is not restartable.
type Scheduler struct {
	buf       *buffer.Buffer
	writer    RowWriter
	interval  time.Duration
	tolerance time.Duration
	clock     Clock
	log       *zap.Logger

	mu      sync.Mutex
	stats   TimingStats
	running bool
	stopped bool

	stop chan struct{}
	done chan struct{}
}

// New creates a scheduler sampling buf into writer.
func New(buf *buffer.Buffer, writer RowWriter, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 200 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	return &Scheduler{
		buf:       buf,
		writer:    writer,
		interval:  cfg.Interval,
		tolerance: cfg.Tolerance,
		clock:     cfg.Clock,
		log:       logger.With(zap.String("component", "scheduler")),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start enters the Running state and begins ticking with startTime as the
// grid baseline: iteration n targets startTime + n*interval. Returns false
// if the scheduler is already running or was stopped.
func (s *Scheduler) Start(startTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return false
	}
	s.running = true

	go s.run(startTime)
	s.log.Info("scheduler started",
		zap.Time("baseline", startTime),
		zap.Duration("interval", s.interval),
		zap.Duration("tolerance", s.tolerance))
	return true
}

// Stop exits the loop. The scheduler observes the stop within one tick
// period; no row is emitted after Stop returns. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasRunning := s.running
	s.mu.Unlock()

	close(s.stop)
	if wasRunning {
		<-s.done
	}
}

// Stats returns a copy of the timing accounting. Never blocks the loop
// for longer than the copy.
func (s *Scheduler) Stats() TimingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) run(start time.Time) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		if err := s.writer.Flush(); err != nil {
			s.log.Error("final flush failed", zap.Error(err))
		}
	}()

	for n := int64(0); ; n++ {
		// Additive target from the fixed baseline; never derived from the
		// previous wake-up.
		target := start.Add(time.Duration(n) * s.interval)

		select {
		case <-s.stop:
			return
		default:
		}

		select {
		case <-s.stop:
			return
		case <-s.clock.Until(target):
		}

		late := s.clock.Now().Sub(target)
		metrics.TickLatency.Observe(late.Seconds())
		if late > s.tolerance {
			s.mu.Lock()
			s.stats.TimingErrors++
			s.stats.CumulativeDrift += late
			s.mu.Unlock()

			metrics.TimingErrors.Inc()
			metrics.CumulativeDrift.Add(late.Seconds())
			s.log.Warn("tick overran tolerance",
				zap.Int64("iteration", n),
				zap.Duration("late", late))
		}

		// The row carries the grid target, not the actual wake time: the
		// persisted cadence stays the ideal 1 Hz grid regardless of
		// scheduling noise.
		row := sink.Row{Target: target, Entries: s.buf.Snapshot()}
		if err := s.writer.WriteRow(row); err != nil {
			// Keep ticking. A power logger must ride out transient I/O
			// failures rather than end the session.
			metrics.RowsWritten.WithLabelValues("error").Inc()
			s.log.Error("row write failed", zap.Int64("iteration", n), zap.Error(err))
		} else {
			metrics.RowsWritten.WithLabelValues("ok").Inc()
		}

		s.mu.Lock()
		s.stats.Iterations++
		s.mu.Unlock()
	}
}

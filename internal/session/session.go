// Package session orchestrates one logging session: it opens the session
// file, runs the fixed-cadence scheduler against the latest-value buffer,
// feeds decoded bus messages through the field mapper, and exposes the
// operator-facing status surface while the session runs.
package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/config"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
	"github.com/efhkdmbc/honkey-pi/pkg/mapping"
	"github.com/efhkdmbc/honkey-pi/pkg/metrics"
	"github.com/efhkdmbc/honkey-pi/pkg/scheduler"
	"github.com/efhkdmbc/honkey-pi/pkg/sink"
	"github.com/efhkdmbc/honkey-pi/pkg/stats"
	"github.com/efhkdmbc/honkey-pi/pkg/telemetry"
)

// Session ties the message source, buffer, mapper, scheduler and sink
// together for one recording session. Create with New, drive with Run.
type Session struct {
	cfg    *config.Config
	source telemetry.Source

	buf    *buffer.Buffer
	mapper *mapping.Mapper
	track  *stats.Tracker

	log *zap.Logger

	mu       sync.Mutex
	start    time.Time
	sink     *sink.CSVSink
	sched    *scheduler.Scheduler
	messages int64
}

// New creates a session reading from source. The default field-mapping
// table is used; messages the table does not route are counted but
// otherwise ignored.
func New(cfg *config.Config, source telemetry.Source) *Session {
	buf := buffer.New()
	return &Session{
		cfg:    cfg,
		source: source,
		buf:    buf,
		mapper: mapping.NewMapper(mapping.DefaultTable(), buf),
		track:  stats.NewTracker(),
		log:    logger.With(zap.String("component", "session")),
	}
}

// Run executes the session until ctx is cancelled or the source is
// exhausted. The session file is opened first, the scheduler starts
// ticking immediately, and incoming messages update the buffer between
// ticks. On exit the scheduler is stopped before the file is closed, so
// no row is lost.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now().UTC()

	snk, err := sink.Open(sink.Config{
		Directory:       s.cfg.Logging.DataDirectory,
		BoatID:          s.cfg.Logging.BoatID,
		FlushEvery:      s.cfg.Logging.FlushEvery,
		CompressOnClose: s.cfg.Logging.CompressOnClose,
	}, start)
	if err != nil {
		return err
	}

	// The open itself hits the disk (mkdir, header write, fsync) and on a
	// slow SD card can exceed the lateness tolerance, so the tick grid is
	// anchored only once the file is ready. The filename keeps the earlier
	// timestamp.
	base := time.Now().UTC()

	sessionID := strings.TrimSuffix(filepath.Base(snk.Path()), ".csv")
	logCtx := context.WithValue(context.Background(), logger.SessionIDKey, sessionID)
	logCtx = context.WithValue(logCtx, logger.ComponentKey, "session")
	s.log = logger.WithContext(logCtx)

	sched := scheduler.New(s.buf, snk, scheduler.Config{
		Interval:  s.cfg.Logging.SampleInterval.Std(),
		Tolerance: s.cfg.Logging.TimingTolerance.Std(),
	})

	s.mu.Lock()
	s.start = base
	s.sink = snk
	s.sched = sched
	s.mu.Unlock()

	sched.Start(base)
	s.log.Info("session started",
		zap.String("file", snk.Path()),
		zap.String("boat_id", s.cfg.Logging.BoatID),
		zap.Duration("interval", s.cfg.Logging.SampleInterval.Std()))

	statusCtx, stopStatus := context.WithCancel(context.Background())
	defer stopStatus()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.reportStatus(statusCtx)
	}()

	var srv *http.Server
	if s.cfg.Status.ListenAddr != "" {
		srv = s.serveStatus()
	}

	runErr := s.source.Run(ctx, s.HandleMessage)

	sched.Stop()
	closeErr := snk.Close()

	stopStatus()
	wg.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("status server shutdown failed", zap.Error(err))
		}
	}

	timing := sched.Stats()
	summary := s.track.Summary()
	s.log.Info("session ended",
		zap.String("file", snk.Path()),
		zap.Int64("rows_written", snk.RowsWritten()),
		zap.Int64("messages_received", s.messagesReceived()),
		zap.Int64("timing_errors", timing.TimingErrors),
		zap.Duration("cumulative_drift", timing.CumulativeDrift),
		zap.Float64("max_speed", summary.MaxSpeed),
		zap.Float64("max_depth", summary.MaxDepth))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return closeErr
}

// HandleMessage routes one decoded bus message into the latest-value
// buffer. Safe to call from the source's goroutine while the scheduler
// ticks.
func (s *Session) HandleMessage(msg *telemetry.Message) {
	mapped := s.mapper.Ingest(msg, time.Now().UTC())
	s.track.Observe(msg, mapped)

	s.mu.Lock()
	s.messages++
	s.mu.Unlock()

	metrics.MessagesIngested.WithLabelValues(strconv.FormatUint(uint64(msg.PGN), 10)).Inc()
	if mapped > 0 {
		metrics.FieldsMapped.Add(float64(mapped))
	}
}

func (s *Session) messagesReceived() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

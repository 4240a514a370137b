package session

import (
	"context"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/scheduler"
	"github.com/efhkdmbc/honkey-pi/pkg/stats"
)

// DiskStatus describes the filesystem holding the data directory.
type DiskStatus struct {
	// TotalBytes is the filesystem capacity
	TotalBytes uint64 `json:"total_bytes"`
	// FreeBytes is the remaining space
	FreeBytes uint64 `json:"free_bytes"`
	// UsedPercent is the filesystem usage
	UsedPercent float64 `json:"used_percent"`
	// DataDirBytes is the size of recorded log files
	DataDirBytes int64 `json:"data_dir_bytes"`
}

// Snapshot is the operator-facing view of a running session.
type Snapshot struct {
	SessionFile      string                `json:"session_file"`
	StartedAt        time.Time             `json:"started_at"`
	UptimeSeconds    float64               `json:"uptime_seconds"`
	MessagesReceived int64                 `json:"messages_received"`
	RowsWritten      int64                 `json:"rows_written"`
	Timing           scheduler.TimingStats `json:"timing"`
	Data             stats.Summary         `json:"data"`
	Disk             DiskStatus            `json:"disk"`
}

// Snapshot captures the session's current state. Valid once Run has
// opened the sink; before that the file-related fields are zero.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		StartedAt:        s.start,
		MessagesReceived: s.messages,
	}
	snk, sched := s.sink, s.sched
	s.mu.Unlock()

	if !snap.StartedAt.IsZero() {
		snap.UptimeSeconds = time.Since(snap.StartedAt).Seconds()
	}
	if snk != nil {
		snap.SessionFile = snk.Path()
		snap.RowsWritten = snk.RowsWritten()
	}
	if sched != nil {
		snap.Timing = sched.Stats()
	}
	snap.Data = s.track.Summary()
	snap.Disk = s.diskStatus()
	return snap
}

func (s *Session) diskStatus() DiskStatus {
	var ds DiskStatus
	if usage, err := disk.Usage(s.cfg.Logging.DataDirectory); err == nil {
		ds.TotalBytes = usage.Total
		ds.FreeBytes = usage.Free
		ds.UsedPercent = usage.UsedPercent
	}
	ds.DataDirBytes = dirSize(s.cfg.Logging.DataDirectory)
	return ds
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// reportStatus logs a status summary every update interval until ctx is
// cancelled.
func (s *Session) reportStatus(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Status.UpdateInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot()
			s.log.Info("session status",
				zap.Int64("rows_written", snap.RowsWritten),
				zap.Int64("messages_received", snap.MessagesReceived),
				zap.Int64("timing_errors", snap.Timing.TimingErrors),
				zap.Float64("max_speed", snap.Data.MaxSpeed),
				zap.Float64("max_depth", snap.Data.MaxDepth),
				zap.Float64("disk_used_percent", snap.Disk.UsedPercent))
		}
	}
}

// serveStatus starts the HTTP status surface: /status returns the JSON
// snapshot, /metrics exposes Prometheus metrics.
func (s *Session) serveStatus() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
			s.log.Warn("status encode failed", zap.Error(err))
		}
	})
	if s.cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              s.cfg.Status.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.log.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server failed", zap.Error(err))
		}
	}()
	return srv
}

// Package sink writes sampled rows to the session CSV file.
//
// A session file starts with the header line (all 181 column names in
// schema order) followed by the format version line, then one row per
// scheduler tick. Empty cells render as the empty string, never "0" or
// "NaN". The file is flushed to disk every FlushEvery rows to bound data
// loss on power failure without paying for a sync on every write.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/errors"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
	"github.com/efhkdmbc/honkey-pi/pkg/metrics"
	"github.com/efhkdmbc/honkey-pi/pkg/schema"
	"github.com/efhkdmbc/honkey-pi/pkg/serial"
)

// FilenameLayout is the time layout for session file names, matching the
// strftime pattern %Y%b%d_%H%M%S.csv downstream tooling globs for.
const FilenameLayout = "2006Jan02_150405"

// Row is one sampled output row: the grid target instant plus the buffer
// snapshot taken at that tick. Immutable after construction and consumed
// exactly once.
type Row struct {
	Target  time.Time
	Entries [schema.ColumnCount]buffer.Entry
}

// Config controls a session sink.
type Config struct {
	// Directory is where the session file is created
	Directory string
	// BoatID is written into the Boat column of every row
	BoatID string
	// FlushEvery is the number of rows between flush-to-disk calls
	FlushEvery int
	// CompressOnClose gzips the finished file when the session ends
	CompressOnClose bool
}

// CSVSink appends rows to one session file. The scheduler is the single
// writer; no internal locking is needed beyond what Close requires.
type CSVSink struct {
	cfg    Config
	path   string
	file   *os.File
	writer *csv.Writer

	rowsWritten int64
	sinceFlush  int

	log *zap.Logger
}

// Open creates the session file, named from startTime, and writes the
// header and version lines.
func Open(cfg Config, startTime time.Time) (*CSVSink, error) {
	if cfg.BoatID == "" {
		cfg.BoatID = schema.DefaultBoatID
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 10
	}

	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create data directory").
			WithDetail("directory", cfg.Directory)
	}

	path := filepath.Join(cfg.Directory, startTime.Format(FilenameLayout)+".csv")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create session file").
			WithDetail("path", path)
	}

	s := &CSVSink{
		cfg:    cfg,
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
		log:    logger.With(zap.String("component", "sink"), zap.String("path", path)),
	}

	if err := s.writer.Write(schema.Header()); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to write header line")
	}
	if err := s.writer.Write([]string{schema.Version}); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to write version line")
	}
	if err := s.flush(); err != nil {
		_ = file.Close()
		return nil, err
	}

	s.log.Info("session file opened",
		zap.String("boat_id", cfg.BoatID),
		zap.Int("flush_every", cfg.FlushEvery))
	return s, nil
}

// WriteRow appends one row. The Boat and Utc cells come from the sink
// configuration and the row's target instant; everything else renders
// from the snapshot, with never-seen columns left empty.
func (s *CSVSink) WriteRow(row Row) error {
	cells := make([]string, schema.ColumnCount)
	cells[schema.ColBoat] = s.cfg.BoatID
	cells[schema.ColUtc] = strconv.FormatFloat(serial.FromTime(row.Target), 'f', -1, 64)

	for i := schema.ColUtc + 1; i < schema.ColumnCount; i++ {
		if row.Entries[i].Seen {
			cells[i] = formatCell(row.Entries[i].Value)
		}
	}

	if err := s.writer.Write(cells); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row")
	}
	s.rowsWritten++
	s.sinceFlush++

	if s.sinceFlush >= s.cfg.FlushEvery {
		if err := s.flush(); err != nil {
			return err
		}
	}
	return nil
}

// Flush forces buffered rows to disk.
func (s *CSVSink) Flush() error {
	return s.flush()
}

func (s *CSVSink) flush() error {
	timer := metrics.NewTimer()
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush rows")
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to sync session file")
	}
	s.sinceFlush = 0
	metrics.SinkFlushes.Inc()
	metrics.FlushDuration.Observe(timer.Stop().Seconds())
	return nil
}

// Close flushes, releases the file handle, and optionally compresses the
// finished session file.
func (s *CSVSink) Close() error {
	if s.file == nil {
		return nil
	}

	flushErr := s.flush()
	closeErr := s.file.Close()
	s.file = nil

	s.log.Info("session file closed", zap.Int64("rows_written", s.rowsWritten))

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.ErrorTypeFile, "failed to close session file")
	}

	if s.cfg.CompressOnClose {
		if err := compressFile(s.path); err != nil {
			// The plain CSV is intact; compression failure is not fatal.
			s.log.Warn("failed to compress session file", zap.Error(err))
			return nil
		}
		s.log.Info("session file compressed", zap.String("path", s.path+".gz"))
	}
	return nil
}

// Path returns the session file path.
func (s *CSVSink) Path() string {
	return s.path
}

// RowsWritten returns the number of rows appended so far.
func (s *CSVSink) RowsWritten() int64 {
	return s.rowsWritten
}

// compressFile gzips path into path.gz and removes the original.
func compressFile(path string) error {
	in, err := os.Open(path) //nolint:gosec // G304: session file created by this process
	if err != nil {
		return fmt.Errorf("failed to open for compression: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %w", err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = gz.Close()
		_ = out.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to finalize compressed file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close compressed file: %w", err)
	}
	return os.Remove(path)
}

// formatCell renders a buffered value into its cell text. Fast paths for
// the scalar types the decoder produces.
func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

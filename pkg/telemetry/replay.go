package telemetry

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/errors"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
)

// ReplaySource replays decoded messages from a JSON-lines capture file,
// one message object per line. It stands in for the external decoder when
// running offline or in tests.
type ReplaySource struct {
	path string

	// Interval is the pause between replayed messages. Zero replays as
	// fast as the handler accepts.
	Interval time.Duration

	log *zap.Logger
}

// NewReplaySource creates a replay source for the given capture file.
func NewReplaySource(path string) *ReplaySource {
	return &ReplaySource{
		path: path,
		log:  logger.With(zap.String("component", "replay"), zap.String("path", path)),
	}
}

// Run reads the capture and delivers each message to handler. Malformed
// lines are skipped with a warning; the rest of the capture still plays.
func (s *ReplaySource) Run(ctx context.Context, handler Handler) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open replay capture")
	}
	defer f.Close()

	var delivered, skipped int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			skipped++
			s.log.Warn("skipping malformed capture line", zap.Error(err))
			continue
		}

		handler(&msg)
		delivered++

		if s.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Interval):
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read replay capture")
	}

	s.log.Info("replay completed",
		zap.Int("messages_delivered", delivered),
		zap.Int("lines_skipped", skipped))
	return nil
}

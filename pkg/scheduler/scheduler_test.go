package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/schema"
	"github.com/efhkdmbc/honkey-pi/pkg/sink"
)

// fakeClock hands out wake-ups only when the test sends one, so each tick
// of the loop is driven explicitly and lateness is scripted per tick.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	wake chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, wake: make(chan time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Until(t time.Time) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		actual, ok := <-c.wake
		if !ok {
			return
		}
		c.mu.Lock()
		c.now = actual
		c.mu.Unlock()
		ch <- actual
	}()
	return ch
}

type recordingWriter struct {
	mu      sync.Mutex
	rows    []sink.Row
	flushes int
	failOn  map[int]error
	wrote   chan struct{}
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		failOn: map[int]error{},
		wrote:  make(chan struct{}, 1024),
	}
}

func (w *recordingWriter) WriteRow(row sink.Row) error {
	w.mu.Lock()
	idx := len(w.rows)
	w.rows = append(w.rows, row)
	err := w.failOn[idx]
	w.mu.Unlock()
	w.wrote <- struct{}{}
	return err
}

func (w *recordingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func (w *recordingWriter) row(i int) sink.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[i]
}

func (w *recordingWriter) waitRows(t *testing.T, n int) {
	t.Helper()
	for w.count() < n {
		select {
		case <-w.wrote:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d rows, have %d", n, w.count())
		}
	}
}

var testStart = time.Date(2021, time.November, 14, 1, 0, 0, 0, time.UTC)

func startScheduler(t *testing.T, w *recordingWriter, clock *fakeClock) *Scheduler {
	t.Helper()
	buf := buffer.New()
	s := New(buf, w, Config{
		Interval:  time.Second,
		Tolerance: 200 * time.Millisecond,
		Clock:     clock,
	})
	require.True(t, s.Start(testStart))
	t.Cleanup(s.Stop)
	return s
}

func TestEmitsOneRowPerTickOnGrid(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	for n := 0; n < 5; n++ {
		clock.wake <- testStart.Add(time.Duration(n) * time.Second)
		w.waitRows(t, n+1)
	}
	s.Stop()

	require.Equal(t, 5, w.count())
	for n := 0; n < 5; n++ {
		assert.Equal(t, testStart.Add(time.Duration(n)*time.Second), w.row(n).Target)
	}
	// Consecutive timestamps differ by exactly the interval.
	for n := 1; n < 5; n++ {
		assert.Equal(t, time.Second, w.row(n).Target.Sub(w.row(n-1).Target))
	}

	stats := s.Stats()
	assert.Equal(t, int64(5), stats.Iterations)
	assert.Equal(t, int64(0), stats.TimingErrors)
	assert.Equal(t, time.Duration(0), stats.CumulativeDrift)
}

func TestOverrunCountedButTimestampStaysOnGrid(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	for n := 0; n < 5; n++ {
		clock.wake <- testStart.Add(time.Duration(n) * time.Second)
		w.waitRows(t, n+1)
	}
	// Tick 5 wakes half a second late, well past the 200ms tolerance.
	clock.wake <- testStart.Add(5*time.Second + 500*time.Millisecond)
	w.waitRows(t, 6)
	s.Stop()

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.TimingErrors)
	assert.Equal(t, 500*time.Millisecond, stats.CumulativeDrift)
	// The row is stamped with the grid target, not the late wake time.
	assert.Equal(t, testStart.Add(5*time.Second), w.row(5).Target)
}

func TestJitterWithinToleranceIsNotAnError(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	for n := 0; n < 3; n++ {
		clock.wake <- testStart.Add(time.Duration(n)*time.Second + 100*time.Millisecond)
		w.waitRows(t, n+1)
	}
	s.Stop()

	stats := s.Stats()
	assert.Equal(t, int64(3), stats.Iterations)
	assert.Equal(t, int64(0), stats.TimingErrors)
}

func TestStopBetweenTicksEmitsNoFurtherRow(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	for n := 0; n < 10; n++ {
		clock.wake <- testStart.Add(time.Duration(n) * time.Second)
		w.waitRows(t, n+1)
	}
	// The loop is now asleep waiting for tick 10's target.
	s.Stop()

	assert.Equal(t, 10, w.count())
	assert.Equal(t, int64(10), s.Stats().Iterations)
	assert.GreaterOrEqual(t, w.flushes, 1)
}

func TestStopIsIdempotent(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	s.Stop()
	s.Stop()
	assert.Equal(t, 0, w.count())
}

func TestStartAfterStopIsRefused(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	s.Stop()
	assert.False(t, s.Start(testStart))
}

func TestStartTwiceIsRefused(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	s := startScheduler(t, w, clock)

	assert.False(t, s.Start(testStart))
}

func TestWriterErrorDoesNotStopTheLoop(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	w.failOn[2] = errors.New("disk full")
	s := startScheduler(t, w, clock)

	for n := 0; n < 5; n++ {
		clock.wake <- testStart.Add(time.Duration(n) * time.Second)
		w.waitRows(t, n+1)
	}
	s.Stop()

	// The failed iteration still counts and the loop keeps going.
	assert.Equal(t, 5, w.count())
	assert.Equal(t, int64(5), s.Stats().Iterations)
}

func TestRowCarriesBufferSnapshot(t *testing.T) {
	clock := newFakeClock(testStart)
	w := newRecordingWriter()
	buf := buffer.New()
	s := New(buf, w, Config{Clock: clock})
	require.True(t, s.Start(testStart))
	defer s.Stop()

	col := schema.MustIndex("BSP")
	buf.Update(col, 12.5, "knots", testStart.Add(300*time.Millisecond))

	clock.wake <- testStart
	w.waitRows(t, 1)
	s.Stop()

	entry := w.row(0).Entries[col]
	require.True(t, entry.Seen)
	assert.Equal(t, 12.5, entry.Value)
}

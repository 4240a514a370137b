// Package stats tracks session summary values derived from the telemetry
// stream: peak boat speed, peak depth, and message counts. The tracker
// sits on the ingestion path, so updates are a mutex-guarded compare and
// store; readers get a copy and never block the scheduler or the decoder.
package stats

import (
	"sync"

	"github.com/efhkdmbc/honkey-pi/pkg/telemetry"
)

// Summary is a point-in-time copy of the tracked values.
type Summary struct {
	MaxSpeed       float64 `json:"max_speed"`
	MaxDepth       float64 `json:"max_depth"`
	MessagesLogged int64   `json:"messages_logged"`
	FieldsMapped   int64   `json:"fields_mapped"`
}

// Tracker accumulates summary statistics. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex
	s  Summary
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe updates the summary from one decoded message. mappedFields is
// the number of column writes the mapper performed for it.
func (t *Tracker) Observe(msg *telemetry.Message, mappedFields int) {
	if msg == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.s.MessagesLogged++
	t.s.FieldsMapped += int64(mappedFields)

	switch msg.PGN {
	case telemetry.PGNSpeed:
		if f, ok := msg.Field("speed_water_referenced"); ok {
			if v, ok := asFloat(f.Value); ok && v > t.s.MaxSpeed {
				t.s.MaxSpeed = v
			}
		}
	case telemetry.PGNWaterDepth:
		if f, ok := msg.Field("depth"); ok {
			if v, ok := asFloat(f.Value); ok && v > t.s.MaxDepth {
				t.s.MaxDepth = v
			}
		}
	}
}

// Summary returns a copy of the current values.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

// asFloat widens the numeric types the decoder produces. Non-numeric
// values are ignored rather than treated as errors.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Package buffer provides the latest-value store sampled by the row
// scheduler. The ingestion path overwrites per-column entries at whatever
// rate messages arrive; the scheduler takes an atomic snapshot once per
// tick. One coarse mutex guards the store; both operations hold it for
// O(1) work (a single entry write, or one copy of the fixed-size array),
// so neither path can stall the other for longer than that copy.
package buffer

import (
	"sync"
	"time"

	"github.com/efhkdmbc/honkey-pi/pkg/schema"
)

// Entry is the most recent observation for one column. Seen distinguishes
// a never-written column from one that legitimately carries a zero value.
type Entry struct {
	Value     interface{}
	Unit      string
	UpdatedAt time.Time
	Seen      bool
}

// Age reports how long ago the entry was updated, for staleness checks.
// Zero for entries never written.
func (e Entry) Age(now time.Time) time.Duration {
	if !e.Seen {
		return 0
	}
	return now.Sub(e.UpdatedAt)
}

// Buffer holds the latest known value for every schema column. Create
// with New; safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries [schema.ColumnCount]Entry
}

// New creates an empty buffer covering all schema columns.
func New() *Buffer {
	return &Buffer{}
}

// Update overwrites the entry for the given column. Out-of-range indexes
// are ignored; the mapping table is the only producer of indexes and is
// validated at startup.
func (b *Buffer) Update(col int, value interface{}, unit string, at time.Time) {
	if col < 0 || col >= schema.ColumnCount {
		return
	}
	b.mu.Lock()
	b.entries[col] = Entry{Value: value, Unit: unit, UpdatedAt: at, Seen: true}
	b.mu.Unlock()
}

// Snapshot returns a copy of all entries taken at a single consistent
// instant. Concurrent Update calls either land entirely before or entirely
// after the snapshot.
func (b *Buffer) Snapshot() [schema.ColumnCount]Entry {
	b.mu.Lock()
	snap := b.entries
	b.mu.Unlock()
	return snap
}

// Get returns the current entry for a column.
func (b *Buffer) Get(col int) Entry {
	if col < 0 || col >= schema.ColumnCount {
		return Entry{}
	}
	b.mu.Lock()
	e := b.entries[col]
	b.mu.Unlock()
	return e
}

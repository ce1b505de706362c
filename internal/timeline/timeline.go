// Package timeline provides an immutable, timestamp-sorted sequence of raw
// feed entries that the playback controller steps through.
package timeline

import (
	"sort"
)

// Entry is one raw topic diff pinned to a point in time. Timestamp is
// ISO-8601 UTC with a fixed nine-digit fraction
// ("2024-03-02T13:15:32.123000000Z"), stored as a string since lexicographic
// order on that fixed-width layout is equivalent to chronological order and
// avoids a parse on the hot path. A variable-width fraction (e.g. trailing
// zeros trimmed) breaks this: producers must always emit all nine digits.
type Entry struct {
	Timestamp string
	Topic     string
	Data      []byte
}

// Timeline is an immutable, stably-sorted vector of entries.
type Timeline struct {
	entries []Entry
}

// New sorts entries by Timestamp (stable, so entries sharing a timestamp
// keep their relative input order) and returns the resulting Timeline.
func New(entries []Entry) Timeline {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return Timeline{entries: sorted}
}

// Length returns the number of entries.
func (t Timeline) Length() int {
	return len(t.entries)
}

// At returns the entry at index i. Callers must keep 0 <= i < Length().
func (t Timeline) At(i int) Entry {
	return t.entries[i]
}

// FindIndex returns the index of the first entry whose timestamp is >= ts,
// via binary search. It returns Length() when ts is past every entry, and 0
// when ts precedes every entry.
func (t Timeline) FindIndex(ts string) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Timestamp >= ts
	})
}

// Range returns the entries in [a, b] inclusive of both bounds, clamped to
// the timeline's extent.
func (t Timeline) Range(a, b int) []Entry {
	if a < 0 {
		a = 0
	}
	if b >= len(t.entries) {
		b = len(t.entries) - 1
	}
	if a > b {
		return nil
	}
	out := make([]Entry, b-a+1)
	copy(out, t.entries[a:b+1])
	return out
}

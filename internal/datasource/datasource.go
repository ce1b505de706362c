// Package datasource provides read-only sources of historical entries for
// the playback controller: a recorded session directory, and the
// historical REST archive. Both shape their output into the same
// timeline.Entry triples so the playback controller and Pipeline never need
// to know which kind of source they're stepping through.
package datasource

import (
	"context"
	"time"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

// TimeRange bounds a data source's available entries.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// DataSource is the common contract for anything the playback controller
// can load a Timeline from.
type DataSource interface {
	// InitialState returns the snapshot to seed the accumulator with before
	// stepping the timeline, or domain.NewSnapshot() if the source has none.
	InitialState(ctx context.Context) (domain.Snapshot, error)
	// TimeRange returns the source's covered span, if known.
	TimeRange(ctx context.Context) (TimeRange, bool, error)
	// Entries returns every entry the source holds, sorted by timestamp. Used
	// by the playback controller to build a seekable Timeline.
	Entries(ctx context.Context) ([]timeline.Entry, error)
	// Stream returns entries at or after from, one at a time on the returned
	// channel, each delayed by wall-clock time proportional to the gap to the
	// next entry divided by speed. The channel closes when the source is
	// exhausted or the returned cancel function is called.
	Stream(ctx context.Context, from time.Time, speed float64) (<-chan timeline.Entry, func())
	// Close releases any resources the source holds open.
	Close() error
}

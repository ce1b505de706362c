package datasource

import (
	"context"
	"time"

	"github.com/bcdxn/f1mqtt/internal/timeline"
)

const maxStreamDelay = 5 * time.Second

// streamEntries is shared plumbing for both DataSource implementations: it
// loads the full entry set, drops everything before from, and emits the
// rest on a channel spaced by wall-clock delays proportional to the gap
// between consecutive entries divided by speed.
func streamEntries(ctx context.Context, load func() ([]timeline.Entry, error), from time.Time, speed float64) (<-chan timeline.Entry, func()) {
	if speed <= 0 {
		speed = 1
	}
	out := make(chan timeline.Entry)
	done := make(chan struct{})
	cancel := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}

	go func() {
		defer close(out)

		entries, err := load()
		if err != nil {
			return
		}
		tl := timeline.New(entries)
		fromStr := from.UTC().Format("2006-01-02T15:04:05.000000000Z")
		start := tl.FindIndex(fromStr)

		for i := start; i < tl.Length(); i++ {
			e := tl.At(i)
			select {
			case out <- e:
			case <-done:
				return
			case <-ctx.Done():
				return
			}

			if i+1 >= tl.Length() {
				continue
			}
			delay := entryDelay(e.Timestamp, tl.At(i+1).Timestamp, speed)
			select {
			case <-time.After(delay):
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel
}

func entryDelay(curr, next string, speed float64) time.Duration {
	ct, err1 := time.Parse("2006-01-02T15:04:05.999Z", curr)
	nt, err2 := time.Parse("2006-01-02T15:04:05.999Z", next)
	if err1 != nil || err2 != nil {
		return 0
	}
	raw := nt.Sub(ct)
	if raw < 0 {
		raw = 0
	}
	scaled := time.Duration(float64(raw) / speed)
	if scaled > maxStreamDelay {
		scaled = maxStreamDelay
	}
	return scaled
}

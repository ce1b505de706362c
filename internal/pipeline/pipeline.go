// Package pipeline sequences one raw feed message through the accumulator
// and detectors, then fans the result out to observers. It is agnostic to
// where the message came from: the live feed, a recorded session, or the
// historical archive all funnel through the same Process call.
package pipeline

import (
	"time"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/detector"
	"github.com/bcdxn/f1mqtt/internal/domain"
)

// Message is one raw topic diff, however it originated.
type Message struct {
	Topic     string
	Data      []byte
	Timestamp time.Time
}

// Update is the aggregate notification emitted once per processed message.
type Update struct {
	Snapshot domain.Snapshot
	Events   []domain.Event
	Raw      Message
}

// Observer receives pipeline notifications synchronously, on the caller's
// goroutine, in the order the Pipeline decides: one call to OnEvent per
// detected event, then exactly one call to OnUpdate.
type Observer interface {
	OnEvent(domain.Event)
	OnUpdate(Update)
}

// Pipeline drives one accumulator with one ordered set of observers. It is
// not safe for concurrent Process calls; callers requiring concurrency must
// serialize access themselves (the playback controller and the live feed
// adapter each own a single Pipeline on a single goroutine).
type Pipeline struct {
	acc       *accumulator.Accumulator
	observers []Observer
}

// New returns a Pipeline backed by acc.
func New(acc *accumulator.Accumulator) *Pipeline {
	return &Pipeline{acc: acc}
}

// Subscribe registers o to receive future notifications.
func (p *Pipeline) Subscribe(o Observer) {
	p.observers = append(p.observers, o)
}

// Process merges msg into the accumulator, detects events against the
// snapshot immediately before and after the merge, and notifies every
// observer: once per event, then once with the aggregate Update.
func (p *Pipeline) Process(msg Message) Update {
	prev := p.acc.Snapshot()
	p.acc.Apply(msg.Topic, msg.Data, msg.Timestamp)
	curr := p.acc.Snapshot()

	events := detector.Detect(prev, curr)
	for _, e := range events {
		for _, o := range p.observers {
			o.OnEvent(e)
		}
	}

	update := Update{Snapshot: curr, Events: events, Raw: msg}
	for _, o := range p.observers {
		o.OnUpdate(update)
	}
	return update
}

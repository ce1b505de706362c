// Package playback drives a pipeline.Pipeline through a timeline.Timeline
// on a cooperative, single-threaded scheduler: one entry at a time, spaced
// by wall-clock delays derived from the entries' own timestamps.
package playback

import (
	"reflect"
	"sync"
	"time"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

// State is one node of the playback state machine.
type State string

const (
	StateStopped State = "stopped"
	StateLoaded  State = "loaded"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

const maxTickDelay = 5000 * time.Millisecond

// Observer receives playback lifecycle notifications, in addition to the
// pipeline.Observer notifications the controller's own Pipeline delivers to
// whoever subscribes to it directly.
type Observer interface {
	OnLoaded(snapshot domain.Snapshot)
	OnStateChange(state State)
	OnSeek(snapshot domain.Snapshot, state State)
	OnFinished()
}

// Controller owns one Pipeline and steps it through a Timeline. It is not
// safe for concurrent use from multiple goroutines; all methods are meant
// to be called from the same goroutine that constructed it (typically a
// CLI command's main loop or a TUI's update loop).
type Controller struct {
	mu sync.Mutex

	pipeline *pipeline.Pipeline
	acc      *accumulator.Accumulator

	tl           timeline.Timeline
	initialState domain.Snapshot

	state        State
	currentIndex int
	speed        float64

	timer      *time.Timer
	generation int

	observers []Observer
}

// New returns a stopped Controller driving acc through a Pipeline built
// over acc.
func New(acc *accumulator.Accumulator) *Controller {
	return &Controller{
		pipeline: pipeline.New(acc),
		acc:      acc,
		state:    StateStopped,
		speed:    1,
	}
}

// Pipeline exposes the controller's underlying Pipeline so callers can
// subscribe pipeline.Observers (e.g. the MQTT publisher) directly.
func (c *Controller) Pipeline() *pipeline.Pipeline { return c.pipeline }

// Subscribe registers o for playback lifecycle notifications.
func (c *Controller) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load stops any current playback, installs tl as the timeline to step
// through, and seeds the accumulator with a deep copy of initialState (or
// its defaults, if initialState is the zero value).
func (c *Controller) Load(tl timeline.Timeline, initialState domain.Snapshot) {
	if reflect.ValueOf(initialState).IsZero() {
		initialState = domain.NewSnapshot()
	}
	c.mu.Lock()
	c.cancelTimerLocked()
	c.tl = tl
	c.initialState = initialState.Clone()
	c.currentIndex = 0
	c.state = StateLoaded
	c.acc.Seed(c.initialState)
	snap := c.acc.Snapshot()
	c.mu.Unlock()

	c.notifyLoaded(snap)
}

// Play transitions loaded/paused into playing and arms the scheduler. It is
// a no-op if there is no timeline loaded or playback is already running.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.tl.Length() == 0 && c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	if c.state == StatePlaying {
		c.mu.Unlock()
		return
	}
	c.state = StatePlaying
	c.mu.Unlock()

	c.notifyStateChange(StatePlaying)
	c.scheduleNext()
}

// Pause cancels the pending tick and transitions to paused.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.state = StatePaused
	c.mu.Unlock()

	c.notifyStateChange(StatePaused)
}

// Stop cancels the pending tick, resets currentIndex, and transitions to
// stopped.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.currentIndex = 0
	c.state = StateStopped
	c.mu.Unlock()

	c.notifyStateChange(StateStopped)
}

// SetSpeed changes the playback multiplier. A non-positive value is treated
// as 1. If playback is currently running, the pending tick is cancelled and
// rescheduled at the new rate.
func (c *Controller) SetSpeed(s float64) {
	c.mu.Lock()
	if s <= 0 {
		s = 1
	}
	c.speed = s
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	var delay time.Duration
	if c.currentIndex > 0 && c.currentIndex < c.tl.Length() {
		delay = tickDelay(c.tl.At(c.currentIndex-1).Timestamp, c.tl.At(c.currentIndex).Timestamp, c.speed)
	}
	gen := c.generation
	c.mu.Unlock()

	c.armTimer(delay, gen)
}

// Seek pauses playback, resets the accumulator to a fresh copy of the
// initial state, silently replays every entry strictly before the target
// index (no detectors, no observer notifications), then lands on the
// target index and emits OnSeek. If playback was running before the seek,
// it resumes afterward.
func (c *Controller) Seek(ts string) {
	c.mu.Lock()
	wasPlaying := c.state == StatePlaying
	c.cancelTimerLocked()
	c.state = StatePaused

	c.acc.Seed(c.initialState)

	target := c.tl.FindIndex(ts)
	for i := 0; i < target; i++ {
		e := c.tl.At(i)
		c.acc.Apply(e.Topic, e.Data, parseEntryTime(e.Timestamp))
	}
	c.currentIndex = target
	snap := c.acc.Snapshot()
	state := c.state
	c.mu.Unlock()

	c.notifySeek(snap, state)

	if wasPlaying {
		c.Play()
	}
}

// scheduleNext pushes the entry at currentIndex through the Pipeline, then
// arms a timer for the next one. Each armed timer captures the controller's
// generation counter at arming time; if pause/stop/seek/setSpeed bump the
// generation before the timer fires, the stale callback is a no-op.
func (c *Controller) scheduleNext() {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	if c.currentIndex >= c.tl.Length() {
		c.state = StateStopped
		c.mu.Unlock()
		c.notifyStateChange(StateStopped)
		c.notifyFinished()
		return
	}

	entry := c.tl.At(c.currentIndex)
	c.mu.Unlock()

	c.pipeline.Process(pipeline.Message{
		Topic:     entry.Topic,
		Data:      entry.Data,
		Timestamp: parseEntryTime(entry.Timestamp),
	})

	c.mu.Lock()
	c.currentIndex++
	if c.currentIndex >= c.tl.Length() {
		gen := c.generation
		c.mu.Unlock()
		c.armTimer(0, gen)
		return
	}

	curr := entry
	next := c.tl.At(c.currentIndex)
	delay := tickDelay(curr.Timestamp, next.Timestamp, c.speed)
	gen := c.generation
	c.mu.Unlock()

	c.armTimer(delay, gen)
}

func (c *Controller) armTimer(delay time.Duration, generation int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return
	}
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := generation != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.scheduleNext()
	})
}

// cancelTimerLocked must be called with c.mu held. It stops any pending
// timer and bumps the generation counter so an in-flight fire (racing the
// Stop call) becomes a no-op.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func tickDelay(currTs, nextTs string, speed float64) time.Duration {
	ct := parseEntryTime(currTs)
	nt := parseEntryTime(nextTs)
	if ct.IsZero() || nt.IsZero() || speed <= 0 {
		return 0
	}
	raw := nt.Sub(ct)
	if raw < 0 {
		raw = 0
	}
	scaled := time.Duration(float64(raw) / speed)
	if scaled > maxTickDelay {
		scaled = maxTickDelay
	}
	return scaled
}

func parseEntryTime(ts string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05.999Z", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *Controller) notifyLoaded(snap domain.Snapshot) {
	c.mu.Lock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnLoaded(snap)
	}
}

func (c *Controller) notifyStateChange(s State) {
	c.mu.Lock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnStateChange(s)
	}
}

func (c *Controller) notifySeek(snap domain.Snapshot, s State) {
	c.mu.Lock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnSeek(snap, s)
	}
}

func (c *Controller) notifyFinished() {
	c.mu.Lock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnFinished()
	}
}

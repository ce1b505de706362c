// Package recorder writes a live pipeline's message stream to disk in a
// format the datasource package can replay bit-for-bit.
package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
)

// Metadata is the session identity written to metadata.json.
type Metadata struct {
	RecordingID string     `json:"recordingId"`
	SessionKey  string     `json:"sessionKey"`
	Year        int        `json:"year"`
	SessionName string     `json:"sessionName"`
	SessionType string     `json:"sessionType"`
	Circuit     string     `json:"circuit"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// liveEntry is one line of live.jsonl.
type liveEntry struct {
	TS    string          `json:"ts"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// timestampLayout is a fixed-width ISO-8601 UTC layout (always nine
// fractional digits, never trimmed). timeline.Timeline sorts and
// binary-searches entries by comparing this field as a plain string, which
// is only equivalent to chronological order when every timestamp has the
// same width; time.RFC3339Nano trims trailing fractional zeros and would
// silently invert same-second events.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// recorderState tracks whether a Recorder is waiting for Start, actively
// writing, or done.
type recorderState int

const (
	// stateBuffering holds every Write call in memory until Start opens
	// live.jsonl, so a caller that only learns a session's identity (year,
	// sessionKey) partway through the initial reference frame doesn't drop
	// whichever topics arrived before that identity was known.
	stateBuffering recorderState = iota
	stateActive
	stateStopped
)

// Recorder owns the append-only live.jsonl stream for one session. Its
// write path is single-writer: Write is expected to be called from the
// same goroutine that drives the live Pipeline.
type Recorder struct {
	log *slog.Logger

	mu       sync.Mutex
	baseline domain.Snapshot
	dir      string
	live     *os.File
	metadata Metadata
	state    recorderState
	pending  []liveEntry
}

// New returns a Recorder writing under baseDir. baseline is the accumulator
// state as of the moment buffering begins (normally domain.NewSnapshot(),
// captured before any message has been processed) and is what subscribe.json
// is written from once Start runs: every buffered Write happened against
// this baseline, not against whatever state the accumulator has reached by
// the time Start is finally called, so a replay that seeds from
// subscribe.json and then re-applies live.jsonl detects the same event
// multiset the live run did. Nothing is created on disk, and every Write is
// buffered in memory, until Start is called.
func New(log *slog.Logger, baseline domain.Snapshot) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{log: log, baseline: baseline, state: stateBuffering}
}

// Start creates <baseDir>/<year>-<sessionKey>/, writes metadata.json and
// subscribe.json (from the baseline passed to New, not the caller's current
// snapshot), and opens live.jsonl for appending.
func (r *Recorder) Start(baseDir string, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta.RecordingID == "" {
		meta.RecordingID = uuid.NewString()
	}

	dir := filepath.Join(baseDir, fmt.Sprintf("%d-%s", meta.Year, meta.SessionKey))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recorder: create session dir: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), metaBytes, 0o644); err != nil {
		return fmt.Errorf("recorder: write metadata.json: %w", err)
	}

	subBytes, err := json.MarshalIndent(r.baseline, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal initial snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "subscribe.json"), subBytes, 0o644); err != nil {
		return fmt.Errorf("recorder: write subscribe.json: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "live.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open live.jsonl: %w", err)
	}

	r.dir = dir
	r.live = f
	r.metadata = meta
	r.state = stateActive

	for _, entry := range r.pending {
		r.writeLine(entry)
	}
	r.pending = nil
	return nil
}

// Write appends one {"ts","topic","data"} line to live.jsonl. Before Start
// has run, entries are buffered in memory and flushed once identity is
// known; after Stop, they are dropped. Failures are logged and swallowed:
// recording is best-effort and must never take down the live pipeline it
// observes.
func (r *Recorder) Write(ts time.Time, topic string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := liveEntry{TS: ts.UTC().Format(timestampLayout), Topic: topic, Data: data}

	switch r.state {
	case stateStopped:
		return
	case stateBuffering:
		r.pending = append(r.pending, entry)
	case stateActive:
		r.writeLine(entry)
	}
}

// writeLine marshals and appends entry to live.jsonl. Callers must hold mu
// and must only call it once live.jsonl is open.
func (r *Recorder) writeLine(entry liveEntry) {
	line, err := json.Marshal(entry)
	if err != nil {
		r.log.Error("recorder: marshal live entry", "error", err, "topic", entry.Topic)
		return
	}
	line = append(line, '\n')
	if _, err := r.live.Write(line); err != nil {
		r.log.Error("recorder: write live entry", "error", err, "topic", entry.Topic)
	}
}

// Stop flushes and closes live.jsonl, and rewrites metadata.json with an
// end timestamp. It is idempotent: calling Stop twice, or on a Recorder
// that was never started, is a safe no-op.
func (r *Recorder) Stop(end time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateStopped {
		return
	}
	wasActive := r.state == stateActive
	r.state = stateStopped
	r.pending = nil

	if r.live != nil {
		if err := r.live.Close(); err != nil {
			r.log.Error("recorder: close live.jsonl", "error", err)
		}
		r.live = nil
	}

	if !wasActive || r.dir == "" {
		return
	}
	endCopy := end.UTC()
	r.metadata.EndTime = &endCopy
	metaBytes, err := json.MarshalIndent(r.metadata, "", "  ")
	if err != nil {
		r.log.Error("recorder: marshal final metadata", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(r.dir, "metadata.json"), metaBytes, 0o644); err != nil {
		r.log.Error("recorder: rewrite metadata.json", "error", err)
	}
}

// pipelineObserver adapts a Recorder to pipeline.Observer so it can be
// subscribed directly to a live Pipeline: every update's raw message is
// appended to live.jsonl, unmodified, before or after the accumulator
// merge has no bearing on the archive since the same message replays
// through Apply on read.
type pipelineObserver struct {
	r *Recorder
}

// AsPipelineObserver returns a pipeline.Observer that appends every
// update's raw message to r's live.jsonl.
func (r *Recorder) AsPipelineObserver() pipeline.Observer {
	return pipelineObserver{r: r}
}

func (o pipelineObserver) OnEvent(domain.Event) {}

func (o pipelineObserver) OnUpdate(u pipeline.Update) {
	o.r.Write(u.Raw.Timestamp, u.Raw.Topic, u.Raw.Data)
}

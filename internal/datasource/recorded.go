package datasource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

// Recorded reads the three-file layout a recorder.Recorder writes:
// metadata.json, subscribe.json, live.jsonl.
type Recorded struct {
	dir string
}

// OpenRecorded returns a Recorded source rooted at dir. Missing files are
// tolerated: InitialState returns domain.NewSnapshot() and Entries returns an
// empty slice rather than erroring, per spec's "missing files are
// tolerated" rule for recording discovery.
func OpenRecorded(dir string) *Recorded {
	return &Recorded{dir: dir}
}

// ListRecordings scans baseDir's immediate subdirectories for ones
// containing metadata.json, returning their directory names.
func ListRecordings(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(baseDir, e.Name(), "metadata.json")); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Recorded) InitialState(ctx context.Context) (domain.Snapshot, error) {
	body, err := os.ReadFile(filepath.Join(r.dir, "subscribe.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewSnapshot(), nil
		}
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("datasource: parse subscribe.json: %w", err)
	}
	return snap, nil
}

func (r *Recorded) TimeRange(ctx context.Context) (TimeRange, bool, error) {
	body, err := os.ReadFile(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return TimeRange{}, false, nil
		}
		return TimeRange{}, false, err
	}
	var meta struct {
		StartTime time.Time  `json:"startTime"`
		EndTime   *time.Time `json:"endTime"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return TimeRange{}, false, fmt.Errorf("datasource: parse metadata.json: %w", err)
	}
	tr := TimeRange{Start: meta.StartTime}
	if meta.EndTime != nil {
		tr.End = *meta.EndTime
	}
	return tr, true, nil
}

func (r *Recorded) Entries(ctx context.Context) ([]timeline.Entry, error) {
	f, err := os.Open(filepath.Join(r.dir, "live.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []timeline.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var line struct {
			TS    string          `json:"ts"`
			Topic string          `json:"topic"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		entries = append(entries, timeline.Entry{Timestamp: line.TS, Topic: line.Topic, Data: line.Data})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("datasource: read live.jsonl: %w", err)
	}
	return timeline.New(entries).Range(0, len(entries)-1), nil
}

func (r *Recorded) Stream(ctx context.Context, from time.Time, speed float64) (<-chan timeline.Entry, func()) {
	return streamEntries(ctx, func() ([]timeline.Entry, error) { return r.Entries(ctx) }, from, speed)
}

func (r *Recorded) Close() error { return nil }

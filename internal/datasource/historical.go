package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

// historicalTopics are the canonical topics the archive is queried for, per
// spec's "same canonical topic names" requirement.
var historicalTopics = []string{"TrackStatus", "TimingData", "TimingAppData", "DriverList"}

// Historical queries the archive's per-topic REST endpoints for one
// session and shapes the responses into canonical timeline entries.
type Historical struct {
	baseURL    string
	sessionKey string
	client     *http.Client
}

// NewHistorical returns a Historical source for sessionKey, querying
// baseURL's REST endpoints.
func NewHistorical(baseURL, sessionKey string) *Historical {
	return &Historical{baseURL: baseURL, sessionKey: sessionKey, client: http.DefaultClient}
}

type historicalRecord struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func (h *Historical) fetchTopic(ctx context.Context, topic string) ([]historicalRecord, error) {
	base, err := url.Parse(h.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid historical base url: %w", err)
	}
	base.Path = path.Join(base.Path, "sessions", h.sessionKey, topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datasource: fetch %s: %w", topic, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("datasource: %s returned %s", topic, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var records []historicalRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("datasource: decode %s response: %w", topic, err)
	}
	return records, nil
}

func (h *Historical) InitialState(ctx context.Context) (domain.Snapshot, error) {
	return domain.NewSnapshot(), nil
}

func (h *Historical) TimeRange(ctx context.Context) (TimeRange, bool, error) {
	entries, err := h.Entries(ctx)
	if err != nil || len(entries) == 0 {
		return TimeRange{}, false, err
	}
	start, _ := time.Parse("2006-01-02T15:04:05.999Z", entries[0].Timestamp)
	end, _ := time.Parse("2006-01-02T15:04:05.999Z", entries[len(entries)-1].Timestamp)
	return TimeRange{Start: start, End: end}, true, nil
}

func (h *Historical) Entries(ctx context.Context) ([]timeline.Entry, error) {
	var entries []timeline.Entry
	for _, topic := range historicalTopics {
		records, err := h.fetchTopic(ctx, topic)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			entries = append(entries, timeline.Entry{Timestamp: r.Timestamp, Topic: topic, Data: r.Data})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries, nil
}

func (h *Historical) Stream(ctx context.Context, from time.Time, speed float64) (<-chan timeline.Entry, func()) {
	return streamEntries(ctx, func() ([]timeline.Entry, error) { return h.Entries(ctx) }, from, speed)
}

func (h *Historical) Close() error { return nil }

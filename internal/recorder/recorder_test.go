package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/datasource"
	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

// eventCollector is a pipeline.Observer that only cares about OnEvent order.
type eventCollector struct {
	events []domain.Event
}

func (c *eventCollector) OnEvent(e domain.Event)    { c.events = append(c.events, e) }
func (c *eventCollector) OnUpdate(pipeline.Update) {}

// TestReplayAfterBufferedStartReproducesLiveEventMultiset guards against a
// recorder that seeds subscribe.json from the post-buffering snapshot: a
// message processed before Start (here, rain arriving before SessionInfo)
// would then be baked into the seed and re-detected against itself on
// replay, silently losing the event it produced live.
func TestReplayAfterBufferedStartReproducesLiveEventMultiset(t *testing.T) {
	dir := t.TempDir()

	acc := accumulator.New()
	p := pipeline.New(acc)
	live := &eventCollector{}
	p.Subscribe(live)

	rec := New(nil, acc.Snapshot())
	p.Subscribe(rec.AsPipelineObserver())

	ts0 := time.Unix(1000, 0).UTC()
	ts1 := time.Unix(1001, 0).UTC()
	ts2 := time.Unix(1002, 0).UTC()

	// Rain arrives before SessionInfo, as map iteration order can deliver it.
	p.Process(pipeline.Message{Topic: "WeatherData", Data: []byte(`{"Rainfall":"1"}`), Timestamp: ts0})

	sessionInfoUpdate := p.Process(pipeline.Message{
		Topic:     "SessionInfo",
		Data:      []byte(`{"Key":9,"Name":"Race","Type":"Race","Meeting":{"Circuit":{"ShortName":"Monza"},"Country":{"Name":"Italy"}}}`),
		Timestamp: ts1,
	})
	require.NotNil(t, sessionInfoUpdate.Snapshot.SessionInfo)

	require.NoError(t, rec.Start(dir, Metadata{
		SessionKey:  "9",
		Year:        2024,
		SessionName: "Race",
		StartTime:   ts1,
	}))

	p.Process(pipeline.Message{Topic: "TrackStatus", Data: []byte(`{"Status":"2","Message":"Yellow"}`), Timestamp: ts2})

	rec.Stop(ts2)

	ctx := context.Background()
	src := datasource.OpenRecorded(filepath.Join(dir, "2024-9"))
	initialState, err := src.InitialState(ctx)
	require.NoError(t, err)
	entries, err := src.Entries(ctx)
	require.NoError(t, err)

	replayAcc := accumulator.New()
	replayAcc.Seed(initialState)
	replayPipeline := pipeline.New(replayAcc)
	replayed := &eventCollector{}
	replayPipeline.Subscribe(replayed)

	tl := timeline.New(entries)
	for i := 0; i < tl.Length(); i++ {
		e := tl.At(i)
		ts, parseErr := time.Parse(time.RFC3339Nano, e.Timestamp)
		require.NoError(t, parseErr)
		replayPipeline.Process(pipeline.Message{Topic: e.Topic, Data: e.Data, Timestamp: ts})
	}

	if diff := cmp.Diff(live.events, replayed.events); diff != "" {
		t.Errorf("replayed event multiset diverged from the live run (-live +replayed):\n%s", diff)
	}
}

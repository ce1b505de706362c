package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/domain"
)

type recordingObserver struct {
	events  []domain.Event
	updates []Update
}

func (r *recordingObserver) OnEvent(e domain.Event) { r.events = append(r.events, e) }
func (r *recordingObserver) OnUpdate(u Update)       { r.updates = append(r.updates, u) }

func TestProcessNotifiesEventsBeforeUpdate(t *testing.T) {
	acc := accumulator.New()
	p := New(acc)
	obs := &recordingObserver{}
	p.Subscribe(obs)

	p.Process(Message{Topic: "TrackStatus", Data: []byte(`{"Status":"1"}`), Timestamp: time.Now()})
	assert.Empty(t, obs.events, "green after default green is not a flag change")
	require.Len(t, obs.updates, 1)

	p.Process(Message{Topic: "TrackStatus", Data: []byte(`{"Status":"2"}`), Timestamp: time.Now()})
	require.Len(t, obs.events, 1)
	_, ok := obs.events[0].(domain.FlagChangeEvent)
	assert.True(t, ok)
	require.Len(t, obs.updates, 2)
	assert.Equal(t, domain.FlagYellow, obs.updates[1].Snapshot.TrackStatus.Flag)
	assert.Len(t, obs.updates[1].Events, 1)
}

func TestProcessIsAgnosticToMessageOrigin(t *testing.T) {
	acc := accumulator.New()
	p := New(acc)
	obs := &recordingObserver{}
	p.Subscribe(obs)

	update := p.Process(Message{Topic: "LapCount", Data: []byte(`{"CurrentLap":3,"TotalLaps":58}`)})
	assert.Equal(t, 3, update.Snapshot.LapCount.Current)
	assert.Equal(t, 58, update.Snapshot.LapCount.Total)
}

// TestReplayingSameMessageSequenceProducesIdenticalSnapshot exercises the
// round-trip fidelity property: driving two independent pipelines with the
// exact same ordered message sequence (as a live run and its recorded
// replay would) must leave both with structurally identical snapshots.
func TestReplayingSameMessageSequenceProducesIdenticalSnapshot(t *testing.T) {
	messages := []Message{
		{Topic: "TrackStatus", Data: []byte(`{"Status":"1"}`), Timestamp: time.Unix(0, 0)},
		{Topic: "DriverList", Data: []byte(`{"1":{"RacingNumber":"1","Tla":"VER","TeamName":"Red Bull Racing"}}`), Timestamp: time.Unix(1, 0)},
		{Topic: "TimingData", Data: []byte(`{"Lines":{"1":{"Position":"1","GapToLeader":"LAP1"}}}`), Timestamp: time.Unix(2, 0)},
		{Topic: "TrackStatus", Data: []byte(`{"Status":"2"}`), Timestamp: time.Unix(3, 0)},
	}

	run := func() domain.Snapshot {
		p := New(accumulator.New())
		var last Update
		for _, m := range messages {
			last = p.Process(m)
		}
		return last.Snapshot
	}

	live := run()
	replayed := run()

	if diff := cmp.Diff(live, replayed); diff != "" {
		t.Errorf("live and replayed snapshots diverged (-live +replayed):\n%s", diff)
	}
}

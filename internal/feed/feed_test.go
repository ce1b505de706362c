package feed

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
)

type recordingObserver struct {
	updates []pipeline.Update
}

func (r *recordingObserver) OnEvent(domain.Event)       {}
func (r *recordingObserver) OnUpdate(u pipeline.Update) { r.updates = append(r.updates, u) }

func newTestAdapter() (*Adapter, *recordingObserver) {
	acc := accumulator.New()
	p := pipeline.New(acc)
	obs := &recordingObserver{}
	p.Subscribe(obs)
	return New(p), obs
}

func TestProcessReferenceMessageEmitsEveryTopic(t *testing.T) {
	a, obs := newTestAdapter()

	ref := `{"R":{"DriverList":{"1":{"RacingNumber":"1","Tla":"VER"}},"TrackStatus":{"Status":"1","Message":"AllClear"}}}`
	a.processMessage([]byte(ref))

	require.Len(t, obs.updates, 2)
	topics := map[string]bool{}
	for _, u := range obs.updates {
		topics[u.Raw.Topic] = true
	}
	assert.True(t, topics["DriverList"])
	assert.True(t, topics["TrackStatus"])
	last := obs.updates[len(obs.updates)-1]
	assert.Equal(t, "VER", last.Snapshot.Drivers["1"].Abbreviation, "reference message processing must merge into the same accumulator regardless of map iteration order")
}

func TestProcessChangeMessageRoutesByTopic(t *testing.T) {
	a, obs := newTestAdapter()

	change := `{"M":[{"H":"Streaming","M":"feed","A":["LapCount",{"CurrentLap":3,"TotalLaps":58},"2024-03-02T13:15:32.000Z"]}]}`
	a.processMessage([]byte(change))

	require.Len(t, obs.updates, 1)
	assert.Equal(t, "LapCount", obs.updates[0].Raw.Topic)
	assert.Equal(t, 3, obs.updates[0].Snapshot.LapCount.Current)
}

func TestProcessChangeMessageIgnoresOtherHubsAndMethods(t *testing.T) {
	a, obs := newTestAdapter()

	change := `{"M":[{"H":"OtherHub","M":"feed","A":["LapCount",{"CurrentLap":1},"2024-03-02T13:15:32.000Z"]}]}`
	a.processMessage([]byte(change))
	assert.Empty(t, obs.updates)
}

func TestEmitInflatesCompressedTopics(t *testing.T) {
	a, obs := newTestAdapter()

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"Position":{"1":{"X":100}}}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	dataJSON, err := json.Marshal(encoded)
	require.NoError(t, err)

	a.emit("Position.z", dataJSON, time.Now())

	require.Len(t, obs.updates, 1)
	assert.Equal(t, "Position", obs.updates[0].Raw.Topic)
}

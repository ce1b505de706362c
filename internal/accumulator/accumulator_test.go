package accumulator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdxn/f1mqtt/internal/domain"
)

func TestApplyTrackStatusRecognisedFlag(t *testing.T) {
	a := New()
	a.Apply("TrackStatus", []byte(`{"Status":"2","Message":"Yellow"}`), time.Time{})

	got := a.Get()
	assert.Equal(t, domain.FlagYellow, got.TrackStatus.Flag)
	assert.Equal(t, "Yellow", got.TrackStatus.Message)
}

func TestApplyTrackStatusUnrecognisedCodeLeavesPrior(t *testing.T) {
	a := New()
	a.Apply("TrackStatus", []byte(`{"Status":"2","Message":"Yellow"}`), time.Time{})
	a.Apply("TrackStatus", []byte(`{"Status":"99","Message":"Huh"}`), time.Time{})

	assert.Equal(t, domain.FlagYellow, a.Get().TrackStatus.Flag)
}

func TestApplyDriverListPartialMergeAndColorFallback(t *testing.T) {
	a := New()
	a.Apply("DriverList", []byte(`{"1":{"RacingNumber":"1","Tla":"VER","TeamName":"Red Bull Racing"}}`), time.Time{})

	d := a.Get().Drivers["1"]
	require.Equal(t, "VER", d.Abbreviation)
	assert.Equal(t, "3671C6", d.TeamColor, "team color should fall back to the season table")

	a.Apply("DriverList", []byte(`{"1":{"FirstName":"Max"}}`), time.Time{})
	d = a.Get().Drivers["1"]
	assert.Equal(t, "Max", d.FirstName)
	assert.Equal(t, "VER", d.Abbreviation, "an earlier field must survive a later diff that omits it")
}

func TestApplyDriverListSkipsEntryLackingIdentity(t *testing.T) {
	a := New()
	a.Apply("DriverList", []byte(`{"44":{"TeamName":"Mercedes"}}`), time.Time{})
	_, ok := a.Get().Drivers["44"]
	assert.False(t, ok)
}

func TestApplyTimingDataPartialMergeNeverClears(t *testing.T) {
	a := New()
	a.Apply("TimingData", []byte(`{"Lines":{"1":{"Position":"1","GapToLeader":"LAP1"}}}`), time.Time{})
	a.Apply("TimingData", []byte(`{"Lines":{"1":{"Position":"1","Sectors":{"0":{"Value":"28.1"}}}}}`), time.Time{})

	row := a.Get().Timing["1"]
	assert.Equal(t, 1, row.Position)
	assert.Equal(t, "LAP1", row.GapToLeader, "unspecified fields must survive a later partial update")
	assert.Equal(t, "28.1", row.Sector1)
}

func TestApplyTimingAppDataSelectsHighestKeyAndTracksPitStop(t *testing.T) {
	a := New()
	a.Apply("TimingAppData", []byte(`{"Lines":{"1":{"Stints":{"0":{"Compound":"MEDIUM","New":"false"}}}}}`), time.Time{})
	first := a.Get().Stints["1"]
	assert.Equal(t, 0, first.StintNumber)
	assert.Equal(t, domain.TireCompoundMedium, first.Compound)

	a.Apply("TimingAppData", []byte(`{"Lines":{"1":{"Stints":{"0":{"TotalLaps":12},"1":{"Compound":"HARD","New":"true"}}}}}`), time.Time{})
	second := a.Get().Stints["1"]
	assert.Equal(t, 1, second.StintNumber)
	assert.Equal(t, domain.TireCompoundHard, second.Compound)
	assert.True(t, second.New)
}

func TestApplyWeatherCoercesAndMergesPartials(t *testing.T) {
	a := New()
	a.Apply("WeatherData", []byte(`{"AirTemp":"24.1","Rainfall":"0"}`), time.Time{})
	a.Apply("WeatherData", []byte(`{"Rainfall":"1"}`), time.Time{})

	w := a.Get().Weather
	require.NotNil(t, w)
	assert.Equal(t, 24.1, w.AirTemp, "AirTemp from the first diff must survive")
	assert.True(t, w.Rainfall)
}

func TestApplyPitLaneTimeCollectionSkipsMissingDuration(t *testing.T) {
	a := New()
	a.Apply("PitLaneTimeCollection", []byte(`{"PitTimes":{"1":{"Duration":"23.421","Lap":15},"2":{"Lap":10}}}`), time.Time{})

	_, ok1 := a.Get().PitLaneTimes["1"]
	_, ok2 := a.Get().PitLaneTimes["2"]
	assert.True(t, ok1)
	assert.False(t, ok2)
}

func TestApplyTopThreeWithheldClears(t *testing.T) {
	a := New()
	a.Apply("TopThree", []byte(`{"Withheld":false,"Lines":[{"Position":"2","RacingNumber":"1","Tla":"VER"},{"Position":"1","RacingNumber":"44","Tla":"HAM"}]}`), time.Time{})
	require.Len(t, a.Get().TopThree, 2)
	assert.Equal(t, "44", a.Get().TopThree[0].DriverNumber, "list must be sorted by position")

	a.Apply("TopThree", []byte(`{"Withheld":true}`), time.Time{})
	assert.Nil(t, a.Get().TopThree)
}

func TestApplyRaceControlMessagesPicksHighestKeyAndIgnoresEmpty(t *testing.T) {
	a := New()
	a.Apply("RaceControlMessages", []byte(`{"Messages":{"0":{"Message":"first"},"1":{"Message":"second"}}}`), time.Time{})
	require.NotNil(t, a.Get().LatestRaceControlMessage)
	assert.Equal(t, "second", a.Get().LatestRaceControlMessage.Message)

	a.Apply("RaceControlMessages", []byte(`{"Messages":{}}`), time.Time{})
	assert.Equal(t, "second", a.Get().LatestRaceControlMessage.Message, "an empty diff must preserve the prior message")
}

func TestApplyUnknownTopicOnlyAdvancesTimestamp(t *testing.T) {
	a := New()
	ts := time.Date(2024, 3, 2, 13, 0, 0, 0, time.UTC)
	a.Apply("SomeFutureTopic", []byte(`{"anything":true}`), ts)
	assert.Equal(t, ts, a.Get().Timestamp)
}

func TestSnapshotIsIndependentOfLiveState(t *testing.T) {
	a := New()
	a.Apply("DriverList", []byte(`{"1":{"RacingNumber":"1","Tla":"VER"}}`), time.Time{})

	before := a.Snapshot()
	snap := a.Snapshot()
	a.Apply("DriverList", []byte(`{"1":{"FirstName":"Max"}}`), time.Time{})

	assert.Empty(t, snap.Drivers["1"].FirstName, "a prior snapshot copy must not observe later mutations")
	assert.Equal(t, "Max", a.Get().Drivers["1"].FirstName)

	// Two independent snapshots taken back-to-back with no state change in
	// between must be structurally identical: nothing captured by Snapshot
	// aliases into the accumulator's own maps.
	if diff := cmp.Diff(before, snap); diff != "" {
		t.Errorf("two immediately-consecutive snapshots differ (-before +snap):\n%s", diff)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	a := New()
	a.Apply("TrackStatus", []byte(`{"Status":"2"}`), time.Time{})
	a.Reset()

	assert.Equal(t, domain.FlagGreen, a.Get().TrackStatus.Flag)
	assert.Empty(t, a.Get().Drivers)
}

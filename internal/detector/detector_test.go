package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdxn/f1mqtt/internal/domain"
)

func snapshotWithFlag(f domain.Flag) domain.Snapshot {
	s := domain.NewSnapshot()
	s.TrackStatus.Flag = f
	return s
}

func TestFlagChangeSafetyCarChain(t *testing.T) {
	prev := snapshotWithFlag(domain.FlagGreen)
	curr := snapshotWithFlag(domain.FlagSC)

	events := Detect(prev, curr)
	require.Len(t, events, 1)
	e, ok := events[0].(domain.FlagChangeEvent)
	require.True(t, ok)
	assert.Equal(t, domain.FlagGreen, e.PreviousFlag)
	assert.Equal(t, domain.FlagSC, e.NewFlag)
}

func gridSnapshot(flag domain.Flag, positions map[string]int, inPit map[string]bool) domain.Snapshot {
	s := domain.NewSnapshot()
	s.TrackStatus.Flag = flag
	s.Drivers["1"] = domain.Driver{DriverNumber: "1", Abbreviation: "VER", TeamColor: "3671C6"}
	s.Drivers["4"] = domain.Driver{DriverNumber: "4", Abbreviation: "NOR", TeamColor: "FF8000"}
	for num, pos := range positions {
		s.Timing[num] = domain.TimingRow{Position: pos, InPit: inPit[num]}
	}
	return s
}

func TestOvertakeUnderGreen(t *testing.T) {
	prev := gridSnapshot(domain.FlagGreen, map[string]int{"1": 1, "4": 2}, nil)
	curr := gridSnapshot(domain.FlagGreen, map[string]int{"1": 2, "4": 1}, nil)

	events := Detect(prev, curr)
	require.Len(t, events, 1)
	e, ok := events[0].(domain.OvertakeEvent)
	require.True(t, ok)
	assert.Equal(t, "4", e.OvertakingDriver)
	assert.Equal(t, "1", e.OvertakenDriver)
	assert.Equal(t, 1, e.NewPosition)
}

func TestOvertakeSuppressedUnderSafetyCar(t *testing.T) {
	prev := gridSnapshot(domain.FlagSC, map[string]int{"1": 1, "4": 2}, nil)
	curr := gridSnapshot(domain.FlagSC, map[string]int{"1": 2, "4": 1}, nil)

	events := Overtakes(prev, curr)
	assert.Empty(t, events)
}

func TestOvertakeSkipsWhenOvertakingDriverInPit(t *testing.T) {
	prev := gridSnapshot(domain.FlagGreen, map[string]int{"1": 1, "4": 2}, nil)
	curr := gridSnapshot(domain.FlagGreen, map[string]int{"1": 2, "4": 1}, map[string]bool{"4": true})

	assert.Empty(t, Overtakes(prev, curr))
}

func TestOvertakeSkipsRetiredOrPittingVictim(t *testing.T) {
	prev := gridSnapshot(domain.FlagGreen, map[string]int{"1": 1, "4": 2}, nil)
	curr := gridSnapshot(domain.FlagGreen, map[string]int{"1": 2, "4": 1}, nil)
	curr.Timing["1"] = domain.TimingRow{Position: 2, Retired: true}

	assert.Empty(t, Overtakes(prev, curr))
}

func TestPitStopByStintIncrement(t *testing.T) {
	prev := domain.NewSnapshot()
	prev.Stints["1"] = domain.Stint{StintNumber: 0, Compound: domain.TireCompoundSoft}
	prev.Drivers["1"] = domain.Driver{DriverNumber: "1", Abbreviation: "VER"}

	curr := prev.Clone()
	curr.Stints["1"] = domain.Stint{StintNumber: 1, Compound: domain.TireCompoundHard}

	events := PitStops(prev, curr)
	require.Len(t, events, 1)
	e, ok := events[0].(domain.PitStopEvent)
	require.True(t, ok)
	assert.Equal(t, domain.TireCompoundHard, e.NewCompound)
	assert.Equal(t, 1, e.StintNumber)
}

func TestPitStopNoPriorStintRequiresPositiveStintNumber(t *testing.T) {
	prev := domain.NewSnapshot()
	curr := prev.Clone()
	curr.Stints["1"] = domain.Stint{StintNumber: 0, Compound: domain.TireCompoundSoft}

	assert.Empty(t, PitStops(prev, curr), "stint 0 with no prior entry is the starting set, not a stop")

	curr.Stints["1"] = domain.Stint{StintNumber: 1, Compound: domain.TireCompoundSoft}
	assert.Len(t, PitStops(prev, curr), 1)
}

func TestWeatherChangeTreatsMissingPriorAsDry(t *testing.T) {
	prev := domain.NewSnapshot()
	curr := domain.NewSnapshot()
	curr.Weather = &domain.Weather{Rainfall: true}

	e, ok := WeatherChange(prev, curr)
	require.True(t, ok)
	wc := e.(domain.WeatherChangeEvent)
	assert.False(t, wc.PreviousRainfall)
	assert.True(t, wc.NewRainfall)
}

func TestWeatherChangeNoOpWhenCurrentMissing(t *testing.T) {
	prev := domain.NewSnapshot()
	curr := domain.NewSnapshot()

	_, ok := WeatherChange(prev, curr)
	assert.False(t, ok)
}

func TestDetectRunsInFixedOrder(t *testing.T) {
	prev := gridSnapshot(domain.FlagGreen, map[string]int{"1": 1, "4": 2}, nil)
	prev.Stints["1"] = domain.Stint{StintNumber: 0, Compound: domain.TireCompoundSoft}

	curr := gridSnapshot(domain.FlagYellow, map[string]int{"1": 2, "4": 1}, nil)
	curr.Stints["1"] = domain.Stint{StintNumber: 1, Compound: domain.TireCompoundHard}
	curr.Weather = &domain.Weather{Rainfall: true}

	events := Detect(prev, curr)
	require.Len(t, events, 4)
	assert.Equal(t, domain.EventKindFlagChange, events[0].Kind())
	assert.Equal(t, domain.EventKindOvertake, events[1].Kind())
	assert.Equal(t, domain.EventKindPitStop, events[2].Kind())
	assert.Equal(t, domain.EventKindWeatherChange, events[3].Kind())
}

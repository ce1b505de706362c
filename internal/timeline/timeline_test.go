package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkEntries() []Entry {
	return []Entry{
		{Timestamp: "2024-03-02T13:15:32.000Z", Topic: "TrackStatus"},
		{Timestamp: "2024-03-02T13:15:30.000Z", Topic: "DriverList"},
		{Timestamp: "2024-03-02T13:15:34.000Z", Topic: "TimingData"},
	}
}

func TestNewSortsByTimestamp(t *testing.T) {
	tl := New(mkEntries())
	require.Equal(t, 3, tl.Length())
	assert.Equal(t, "DriverList", tl.At(0).Topic)
	assert.Equal(t, "TrackStatus", tl.At(1).Topic)
	assert.Equal(t, "TimingData", tl.At(2).Topic)
}

func TestNewIsStableForEqualTimestamps(t *testing.T) {
	entries := []Entry{
		{Timestamp: "2024-03-02T13:15:30.000Z", Topic: "A"},
		{Timestamp: "2024-03-02T13:15:30.000Z", Topic: "B"},
	}
	tl := New(entries)
	assert.Equal(t, "A", tl.At(0).Topic)
	assert.Equal(t, "B", tl.At(1).Topic)
}

func TestFindIndexBoundaries(t *testing.T) {
	tl := New(mkEntries())

	assert.Equal(t, 0, tl.FindIndex("2024-03-02T13:00:00.000Z"), "before every entry")
	assert.Equal(t, 3, tl.FindIndex("2024-03-02T23:59:59.000Z"), "after every entry")
	assert.Equal(t, 1, tl.FindIndex("2024-03-02T13:15:32.000Z"), "exact match returns that index")
	assert.Equal(t, 1, tl.FindIndex("2024-03-02T13:15:31.000Z"), "between entries returns the next one")
}

func TestRangeInclusiveBothEnds(t *testing.T) {
	tl := New(mkEntries())
	r := tl.Range(0, 1)
	require.Len(t, r, 2)
	assert.Equal(t, "DriverList", r[0].Topic)
	assert.Equal(t, "TrackStatus", r[1].Topic)
}

func TestRangeClampsOutOfBounds(t *testing.T) {
	tl := New(mkEntries())
	r := tl.Range(-5, 100)
	assert.Len(t, r, 3)
}

func TestEmptyTimeline(t *testing.T) {
	tl := New(nil)
	assert.Equal(t, 0, tl.Length())
	assert.Equal(t, 0, tl.FindIndex("anything"))
}

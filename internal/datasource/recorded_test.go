package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecording(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{"sessionKey":"1234","year":2024,"startTime":"2024-03-02T13:00:00Z"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subscribe.json"), []byte(`{"trackStatus":{"flag":"green"}}`), 0o644))
	live := `{"ts":"2024-03-02T13:00:02.000Z","topic":"LapCount","data":{"CurrentLap":2}}
{"ts":"2024-03-02T13:00:01.000Z","topic":"TrackStatus","data":{"Status":"1"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.jsonl"), []byte(live), 0o644))
}

func TestRecordedEntriesAreSortedByTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, filepath.Join(dir, "2024-1234"))

	r := OpenRecorded(filepath.Join(dir, "2024-1234"))
	entries, err := r.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "TrackStatus", entries[0].Topic)
	assert.Equal(t, "LapCount", entries[1].Topic)
}

func TestRecordedTolerateMissingFiles(t *testing.T) {
	dir := t.TempDir()
	r := OpenRecorded(filepath.Join(dir, "nonexistent"))

	snap, err := r.InitialState(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Drivers)

	entries, err := r.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, ok, err := r.TimeRange(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRecordingsFindsSessionDirsWithMetadata(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, filepath.Join(dir, "2024-1234"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-session"), 0o755))

	found, err := ListRecordings(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-1234"}, found)
}

package domain

import "time"

// NewSnapshot returns a snapshot with fields initialized to their documented
// defaults (green flag, zeroed lap count), matching the teacher's
// safe-zero-value constructor convention (NewDriver, NewMeeting).
func NewSnapshot() Snapshot {
	return Snapshot{
		TrackStatus: TrackStatus{Flag: FlagGreen},
		Drivers:     make(map[string]Driver),
		Timing:      make(map[string]TimingRow),
		Stints:      make(map[string]Stint),
		PitLaneTimes: make(map[string]PitLaneTime),
		TopThree:    nil,
	}
}

// Snapshot is the entire observable session at a point in time. It is an
// owned value: Clone produces an independent copy suitable for handing to a
// detector or observer without risking aliasing into the accumulator's
// internal state.
type Snapshot struct {
	SessionInfo              *SessionInfo
	TrackStatus              TrackStatus
	LapCount                 LapCount
	Weather                  *Weather
	Drivers                  map[string]Driver
	Timing                   map[string]TimingRow
	Stints                   map[string]Stint
	PitLaneTimes             map[string]PitLaneTime
	TopThree                 []TopThreeEntry
	LatestRaceControlMessage *RaceControlMessage
	Timestamp                time.Time
}

// Clone returns a deep, fully independent copy of s. Mutating the returned
// value (or any of its maps/slices) never affects s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.SessionInfo != nil {
		info := *s.SessionInfo
		out.SessionInfo = &info
	}
	if s.Weather != nil {
		w := *s.Weather
		out.Weather = &w
	}
	if s.LatestRaceControlMessage != nil {
		m := *s.LatestRaceControlMessage
		out.LatestRaceControlMessage = &m
	}
	out.Drivers = cloneMap(s.Drivers)
	out.Timing = cloneMap(s.Timing)
	out.Stints = cloneMap(s.Stints)
	out.PitLaneTimes = cloneMap(s.PitLaneTimes)
	if s.TopThree != nil {
		out.TopThree = append([]TopThreeEntry(nil), s.TopThree...)
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

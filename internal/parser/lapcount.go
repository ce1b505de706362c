package parser

import "encoding/json"

// LapCountDiff is the decoded LapCount payload.
type LapCountDiff struct {
	CurrentLap *int
	TotalLaps  *int
}

// ParseLapCount decodes a LapCount topic payload.
func ParseLapCount(raw []byte) LapCountDiff {
	var w struct {
		CurrentLap *int `json:"CurrentLap"`
		TotalLaps  *int `json:"TotalLaps"`
	}
	_ = json.Unmarshal(raw, &w)
	return LapCountDiff{CurrentLap: w.CurrentLap, TotalLaps: w.TotalLaps}
}

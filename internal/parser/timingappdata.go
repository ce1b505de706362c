package parser

import "encoding/json"

// StintDiff is one candidate stint entry for a driver. The accumulator picks
// the entry with the highest key among all stints present in one diff.
type StintDiff struct {
	Compound  *string
	TotalLaps *int
	New       *string
}

type stintWire struct {
	Compound  *string `json:"Compound"`
	TotalLaps *int    `json:"TotalLaps"`
	New       *string `json:"New"`
}

type timingAppRowWire struct {
	Stints json.RawMessage `json:"Stints"`
}

// ParseTimingAppData decodes a TimingAppData topic payload into a map keyed
// by driver number, each holding the stint entry keyed by stint-number
// string as sent on the wire (highest-key selection happens in the
// accumulator, per spec).
func ParseTimingAppData(raw []byte) map[string]map[string]StintDiff {
	var envelope struct {
		Lines json.RawMessage `json:"Lines"`
	}
	_ = json.Unmarshal(raw, &envelope)
	lines := mapOrList[timingAppRowWire](envelope.Lines)
	out := make(map[string]map[string]StintDiff, len(lines))
	for num, line := range lines {
		stints := mapOrList[stintWire](line.Stints)
		diffs := make(map[string]StintDiff, len(stints))
		for k, s := range stints {
			diffs[k] = StintDiff{Compound: s.Compound, TotalLaps: s.TotalLaps, New: s.New}
		}
		out[num] = diffs
	}
	return out
}

package parser

import "encoding/json"

// TimingRowDiff is one driver's partial TimingData update.
type TimingRowDiff struct {
	Position    *string
	GapToLeader *string
	Interval    *string
	LastLapTime *string
	BestLapTime *string
	Sector1     *string
	Sector2     *string
	Sector3     *string
	InPit       *bool
	Retired     *bool
	Stopped     *bool
}

type sectorWire struct {
	Value *string `json:"Value"`
}

type timingRowWire struct {
	Position                *string `json:"Position"`
	GapToLeader             *string `json:"GapToLeader"`
	IntervalToPositionAhead struct {
		Value *string `json:"Value"`
	} `json:"IntervalToPositionAhead"`
	LastLapTime struct {
		Value *string `json:"Value"`
	} `json:"LastLapTime"`
	BestLapTime struct {
		Value *string `json:"Value"`
	} `json:"BestLapTime"`
	Sectors json.RawMessage `json:"Sectors"`
	InPit   *bool           `json:"InPit"`
	Retired *bool           `json:"Retired"`
	Stopped *bool           `json:"Stopped"`
}

// ParseTimingData decodes a TimingData topic payload into a map keyed by
// driver number string.
func ParseTimingData(raw []byte) map[string]TimingRowDiff {
	var envelope struct {
		Lines json.RawMessage `json:"Lines"`
	}
	_ = json.Unmarshal(raw, &envelope)
	lines := mapOrList[timingRowWire](envelope.Lines)
	out := make(map[string]TimingRowDiff, len(lines))
	for num, line := range lines {
		diff := TimingRowDiff{
			Position:    line.Position,
			GapToLeader: line.GapToLeader,
			Interval:    line.IntervalToPositionAhead.Value,
			LastLapTime: line.LastLapTime.Value,
			BestLapTime: line.BestLapTime.Value,
			InPit:       line.InPit,
			Retired:     line.Retired,
			Stopped:     line.Stopped,
		}
		sectors := mapOrList[sectorWire](line.Sectors)
		if v, ok := sectors["0"]; ok {
			diff.Sector1 = v.Value
		}
		if v, ok := sectors["1"]; ok {
			diff.Sector2 = v.Value
		}
		if v, ok := sectors["2"]; ok {
			diff.Sector3 = v.Value
		}
		out[num] = diff
	}
	return out
}

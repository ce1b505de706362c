package parser

import "encoding/json"

// TrackStatusDiff is the decoded TrackStatus payload.
type TrackStatusDiff struct {
	Status  *string
	Message *string
}

// ParseTrackStatus decodes a TrackStatus topic payload.
func ParseTrackStatus(raw []byte) TrackStatusDiff {
	var w struct {
		Status  *string `json:"Status"`
		Message *string `json:"Message"`
	}
	_ = json.Unmarshal(raw, &w)
	return TrackStatusDiff{Status: w.Status, Message: w.Message}
}

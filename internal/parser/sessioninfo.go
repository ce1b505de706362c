package parser

import "encoding/json"

// SessionInfoDiff is the decoded SessionInfo payload.
type SessionInfoDiff struct {
	Key       *int
	Name      *string
	Type      *string
	Circuit   *string
	Country   *string
	StartDate *string
	EndDate   *string
	GMTOffset *string
}

// ParseSessionInfo decodes a SessionInfo topic payload.
func ParseSessionInfo(raw []byte) SessionInfoDiff {
	var w struct {
		Key     *int    `json:"Key"`
		Name    *string `json:"Name"`
		Type    *string `json:"Type"`
		Meeting struct {
			Circuit struct {
				ShortName *string `json:"ShortName"`
			} `json:"Circuit"`
			Country struct {
				Name *string `json:"Name"`
			} `json:"Country"`
		} `json:"Meeting"`
		StartDate *string `json:"StartDate"`
		EndDate   *string `json:"EndDate"`
		GMTOffset *string `json:"GmtOffset"`
	}
	_ = json.Unmarshal(raw, &w)
	return SessionInfoDiff{
		Key:       w.Key,
		Name:      w.Name,
		Type:      w.Type,
		Circuit:   w.Meeting.Circuit.ShortName,
		Country:   w.Meeting.Country.Name,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		GMTOffset: w.GMTOffset,
	}
}

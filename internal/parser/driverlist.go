package parser

// DriverDiff is one driver's partial DriverList update.
type DriverDiff struct {
	RacingNumber *string
	Abbreviation *string
	FirstName    *string
	LastName     *string
	TeamName     *string
	TeamColor    *string
	CountryCode  *string
}

type driverWire struct {
	RacingNumber *string `json:"RacingNumber"`
	Tla          *string `json:"Tla"`
	FirstName    *string `json:"FirstName"`
	LastName     *string `json:"LastName"`
	TeamName     *string `json:"TeamName"`
	TeamColour   *string `json:"TeamColour"`
	CountryCode  *string `json:"CountryCode"`
}

// ParseDriverList decodes a DriverList topic payload into a map keyed by
// driver number string.
func ParseDriverList(raw []byte) map[string]DriverDiff {
	wire := mapOrList[driverWire](raw)
	out := make(map[string]DriverDiff, len(wire))
	for num, w := range wire {
		out[num] = DriverDiff{
			RacingNumber: w.RacingNumber,
			Abbreviation: w.Tla,
			FirstName:    w.FirstName,
			LastName:     w.LastName,
			TeamName:     w.TeamName,
			TeamColor:    w.TeamColour,
			CountryCode:  w.CountryCode,
		}
	}
	return out
}

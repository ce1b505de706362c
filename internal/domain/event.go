package domain

// EventKind names the semantic event families a detector can emit.
type EventKind string

const (
	EventKindFlagChange    EventKind = "flag_change"
	EventKindOvertake      EventKind = "overtake"
	EventKindPitStop       EventKind = "pit_stop"
	EventKindWeatherChange EventKind = "weather_change"
)

// Event is the sum type produced by the detectors in internal/detector.
type Event interface {
	Kind() EventKind
}

// FlagChangeEvent fires when the track status flag transitions.
type FlagChangeEvent struct {
	PreviousFlag Flag
	NewFlag      Flag
	Message      string
}

func (FlagChangeEvent) Kind() EventKind { return EventKindFlagChange }

// OvertakeEvent fires once per driver overtaken by a driver that gained
// position.
type OvertakeEvent struct {
	OvertakingDriver       string
	OvertakenDriver        string
	NewPosition            int
	OvertakingAbbreviation string
	OvertakenAbbreviation  string
	OvertakingTeamColor    string
	OvertakenTeamColor     string
}

func (OvertakeEvent) Kind() EventKind { return EventKindOvertake }

// PitStopEvent fires when a driver's stint number advances.
type PitStopEvent struct {
	DriverNumber string
	Abbreviation string
	TeamColor    string
	NewCompound  TireCompound
	StintNumber  int
}

func (PitStopEvent) Kind() EventKind { return EventKindPitStop }

// WeatherChangeEvent fires when the rainfall boolean flips.
type WeatherChangeEvent struct {
	PreviousRainfall bool
	NewRainfall      bool
}

func (WeatherChangeEvent) Kind() EventKind { return EventKindWeatherChange }

package domain

// Flag is the session's global safety state, driving the overtake detector's
// gating logic and the publisher's flag-appearance table.
type Flag string

const (
	FlagGreen        Flag = "green"
	FlagYellow       Flag = "yellow"
	FlagSC           Flag = "sc"
	FlagVSC          Flag = "vsc"
	FlagVSCEnding    Flag = "vsc_ending"
	FlagRed          Flag = "red"
	FlagChequered    Flag = "chequered"
	FlagUnrecognized Flag = ""
)

// flagCodes maps the upstream TrackStatus.Status numeric code to a Flag. Any
// code not present here is unrecognized and must leave trackStatus unchanged
// per spec.
var flagCodes = map[string]Flag{
	"1": FlagGreen,
	"2": FlagYellow,
	"4": FlagSC,
	"5": FlagRed,
	"6": FlagVSC,
	"7": FlagVSCEnding,
	"8": FlagChequered,
}

// ParseFlag converts an upstream TrackStatus status code into a Flag. ok is
// false when the code is not recognised, in which case callers must not
// overwrite the previous flag.
func ParseFlag(code string) (f Flag, ok bool) {
	f, ok = flagCodes[code]
	return f, ok
}

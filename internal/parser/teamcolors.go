package parser

// seasonTeamColors is a fallback table of team hex colors, used when a
// DriverList entry omits TeamColour (observed on some historical feeds and
// on the very first DriverList snapshot of a session before the live feed
// backfills styling data).
var seasonTeamColors = map[string]string{
	"Red Bull Racing":  "3671C6",
	"Ferrari":          "E8002D",
	"Mercedes":         "27F4D2",
	"McLaren":          "FF8000",
	"Aston Martin":     "229971",
	"Alpine":           "FF87BC",
	"Williams":         "64C4FF",
	"RB":               "6692FF",
	"Kick Sauber":      "52E252",
	"Haas F1 Team":     "B6BABD",
}

// TeamColorFallback returns the season table color for teamName, if known.
func TeamColorFallback(teamName string) (string, bool) {
	c, ok := seasonTeamColors[teamName]
	return c, ok
}

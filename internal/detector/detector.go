// Package detector turns two consecutive snapshots into the semantic
// events a viewer cares about. Every detector here is a pure function: no
// I/O, no randomness, no shared state, so the same (prev, curr) pair always
// yields the same events regardless of when or how often it's called.
package detector

import (
	"sort"

	"github.com/bcdxn/f1mqtt/internal/domain"
)

// gatedFlags are the safety-car-family flags under which overtakes are not
// scored as real racing moves.
var gatedFlags = map[domain.Flag]bool{
	domain.FlagSC:        true,
	domain.FlagVSC:       true,
	domain.FlagVSCEnding: true,
	domain.FlagRed:       true,
}

// Detect runs every detector over (prev, curr) in the fixed order flag,
// overtake, pit, weather and concatenates their results.
func Detect(prev, curr domain.Snapshot) []domain.Event {
	var events []domain.Event
	events = append(events, FlagChange(prev, curr)...)
	events = append(events, Overtakes(prev, curr)...)
	events = append(events, PitStops(prev, curr)...)
	if e, ok := WeatherChange(prev, curr); ok {
		events = append(events, e)
	}
	return events
}

// FlagChange emits one event iff the track status flag transitioned.
func FlagChange(prev, curr domain.Snapshot) []domain.Event {
	if prev.TrackStatus.Flag == curr.TrackStatus.Flag {
		return nil
	}
	return []domain.Event{domain.FlagChangeEvent{
		PreviousFlag: prev.TrackStatus.Flag,
		NewFlag:      curr.TrackStatus.Flag,
		Message:      curr.TrackStatus.Message,
	}}
}

// Overtakes finds every (D, O) pair where D passed O between prev and curr.
func Overtakes(prev, curr domain.Snapshot) []domain.Event {
	if gatedFlags[curr.TrackStatus.Flag] {
		return nil
	}

	var events []domain.Event
	for _, d := range sortedKeys(curr.Timing) {
		prevD, hadPrevD := prev.Timing[d]
		currD := curr.Timing[d]
		if !hadPrevD || currD.Position >= prevD.Position {
			continue
		}
		if currD.InPit {
			continue
		}

		for _, o := range sortedKeys(prev.Timing) {
			if o == d {
				continue
			}
			prevO, hadPrevO := prev.Timing[o]
			currO, hadCurrO := curr.Timing[o]
			if !hadPrevO || !hadCurrO {
				continue
			}
			if !(prevO.Position < prevD.Position && currO.Position > currD.Position && prevO.Position >= currD.Position) {
				continue
			}
			if prevO.InPit || currO.InPit || currO.Retired {
				continue
			}

			events = append(events, domain.OvertakeEvent{
				OvertakingDriver:       d,
				OvertakenDriver:        o,
				NewPosition:            currD.Position,
				OvertakingAbbreviation: driverAbbrev(curr, d),
				OvertakenAbbreviation:  driverAbbrev(curr, o),
				OvertakingTeamColor:    driverColor(curr, d),
				OvertakenTeamColor:     driverColor(curr, o),
			})
		}
	}
	return events
}

// PitStops emits one event per driver whose stint number advanced.
func PitStops(prev, curr domain.Snapshot) []domain.Event {
	var events []domain.Event
	for _, num := range sortedStintKeys(curr.Stints) {
		stint := curr.Stints[num]
		prevStint, had := prev.Stints[num]
		if had {
			if stint.StintNumber <= prevStint.StintNumber {
				continue
			}
		} else if stint.StintNumber <= 0 {
			continue
		}
		events = append(events, domain.PitStopEvent{
			DriverNumber: num,
			Abbreviation: driverAbbrev(curr, num),
			TeamColor:    driverColor(curr, num),
			NewCompound:  stint.Compound,
			StintNumber:  stint.StintNumber,
		})
	}
	return events
}

// WeatherChange reports whether the rainfall boolean flipped between prev
// and curr. A missing prev.Weather is treated as rainfall=false.
func WeatherChange(prev, curr domain.Snapshot) (domain.Event, bool) {
	if curr.Weather == nil {
		return nil, false
	}
	prevRain := false
	if prev.Weather != nil {
		prevRain = prev.Weather.Rainfall
	}
	if curr.Weather.Rainfall == prevRain {
		return nil, false
	}
	return domain.WeatherChangeEvent{
		PreviousRainfall: prevRain,
		NewRainfall:      curr.Weather.Rainfall,
	}, true
}

func driverAbbrev(s domain.Snapshot, num string) string {
	return s.Drivers[num].Abbreviation
}

func driverColor(s domain.Snapshot, num string) string {
	return s.Drivers[num].TeamColor
}

func sortedKeys(m map[string]domain.TimingRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStintKeys(m map[string]domain.Stint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

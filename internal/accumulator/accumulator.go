// Package accumulator folds the stream of raw topic diffs from the feed
// into a single mutable Snapshot, one topic at a time. It is the only
// package in this module that owns mutable session state; everything
// downstream (detectors, publisher, TUI) works off read-only or cloned
// values handed out by it.
package accumulator

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/parser"
)

// Accumulator merges topic diffs into a Snapshot under a single lock.
// DriverList, TimingData, PitLaneTimeCollection and WeatherData diffs are
// kept as pointer-field overlays (mirroring the parser's optionality idiom)
// and merged with mergo so a later partial diff never clears a field an
// earlier diff set; every other topic is applied by its own merge rule.
type Accumulator struct {
	mu sync.RWMutex

	snap domain.Snapshot

	driverOverlay  map[string]parser.DriverDiff
	timingOverlay  map[string]parser.TimingRowDiff
	pitOverlay     map[string]parser.PitLaneTimeDiff
	weatherOverlay parser.WeatherDiff
	hasWeather     bool
}

// New returns an Accumulator initialised to its documented defaults.
func New() *Accumulator {
	a := &Accumulator{}
	a.reset()
	return a
}

func (a *Accumulator) reset() {
	a.snap = domain.NewSnapshot()
	a.driverOverlay = make(map[string]parser.DriverDiff)
	a.timingOverlay = make(map[string]parser.TimingRowDiff)
	a.pitOverlay = make(map[string]parser.PitLaneTimeDiff)
	a.weatherOverlay = parser.WeatherDiff{}
	a.hasWeather = false
}

// Reset re-initialises the accumulator to its zero-state defaults.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

// Seed installs snap as the accumulator's current state, deep-copied, and
// rebuilds the merge overlays from it so that a subsequent partial diff
// merges against the seeded values rather than clearing them. Used by the
// playback controller to prime the accumulator from a recorded/historical
// initial snapshot before stepping a timeline.
func (a *Accumulator) Seed(snap domain.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap = snap.Clone()
	if a.snap.Drivers == nil {
		a.snap.Drivers = make(map[string]domain.Driver)
	}
	if a.snap.Timing == nil {
		a.snap.Timing = make(map[string]domain.TimingRow)
	}
	if a.snap.Stints == nil {
		a.snap.Stints = make(map[string]domain.Stint)
	}
	if a.snap.PitLaneTimes == nil {
		a.snap.PitLaneTimes = make(map[string]domain.PitLaneTime)
	}

	a.driverOverlay = make(map[string]parser.DriverDiff, len(a.snap.Drivers))
	for num, d := range a.snap.Drivers {
		d := d
		a.driverOverlay[num] = parser.DriverDiff{
			RacingNumber: &d.DriverNumber,
			Abbreviation: &d.Abbreviation,
			FirstName:    &d.FirstName,
			LastName:     &d.LastName,
			TeamName:     &d.TeamName,
			TeamColor:    &d.TeamColor,
			CountryCode:  &d.CountryCode,
		}
	}

	a.timingOverlay = make(map[string]parser.TimingRowDiff, len(a.snap.Timing))
	for num, row := range a.snap.Timing {
		row := row
		pos := strconv.Itoa(row.Position)
		a.timingOverlay[num] = parser.TimingRowDiff{
			Position:    &pos,
			GapToLeader: &row.GapToLeader,
			Interval:    &row.Interval,
			LastLapTime: &row.LastLapTime,
			BestLapTime: &row.BestLapTime,
			Sector1:     &row.Sector1,
			Sector2:     &row.Sector2,
			Sector3:     &row.Sector3,
			InPit:       &row.InPit,
			Retired:     &row.Retired,
			Stopped:     &row.Stopped,
		}
	}

	a.pitOverlay = make(map[string]parser.PitLaneTimeDiff, len(a.snap.PitLaneTimes))
	for num, p := range a.snap.PitLaneTimes {
		p := p
		a.pitOverlay[num] = parser.PitLaneTimeDiff{Duration: &p.Duration, Lap: &p.Lap}
	}

	a.weatherOverlay = parser.WeatherDiff{}
	a.hasWeather = a.snap.Weather != nil
	if a.hasWeather {
		w := *a.snap.Weather
		a.weatherOverlay = parser.WeatherDiff{
			AirTemp:       &w.AirTemp,
			TrackTemp:     &w.TrackTemp,
			Humidity:      &w.Humidity,
			Rainfall:      &w.Rainfall,
			WindSpeed:     &w.WindSpeed,
			WindDirection: &w.WindDirection,
			Pressure:      &w.Pressure,
		}
	}
}

// Get returns the current snapshot by reference. Callers must not mutate
// the returned value or any collection reachable from it; use Snapshot for
// an independent copy.
func (a *Accumulator) Get() *domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &a.snap
}

// Snapshot returns a deep, fully independent copy of the current state.
func (a *Accumulator) Snapshot() domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Clone()
}

// Apply merges one raw topic diff into the accumulator's state. Unknown
// topics are a no-op apart from advancing the timestamp; malformed payloads
// never panic since every parser tolerates partial/absent JSON.
func (a *Accumulator) Apply(topic string, raw []byte, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !ts.IsZero() {
		a.snap.Timestamp = ts
	}

	switch topic {
	case "TrackStatus":
		a.applyTrackStatus(raw)
	case "DriverList":
		a.applyDriverList(raw)
	case "TimingData":
		a.applyTimingData(raw)
	case "TimingAppData":
		a.applyTimingAppData(raw)
	case "SessionInfo":
		a.applySessionInfo(raw)
	case "LapCount":
		a.applyLapCount(raw)
	case "WeatherData":
		a.applyWeather(raw)
	case "PitLaneTimeCollection":
		a.applyPitLaneTimes(raw)
	case "TopThree":
		a.applyTopThree(raw)
	case "RaceControlMessages":
		a.applyRaceControl(raw)
	}
}

func (a *Accumulator) applyTrackStatus(raw []byte) {
	diff := parser.ParseTrackStatus(raw)
	if diff.Status == nil {
		return
	}
	f, ok := domain.ParseFlag(*diff.Status)
	if !ok {
		return
	}
	a.snap.TrackStatus = domain.TrackStatus{Flag: f, Message: derefStr(diff.Message)}
}

func (a *Accumulator) applyDriverList(raw []byte) {
	for num, diff := range parser.ParseDriverList(raw) {
		existing, known := a.driverOverlay[num]
		if !known && diff.RacingNumber == nil && diff.Abbreviation == nil {
			continue
		}
		if err := mergo.Merge(&existing, diff, mergo.WithOverride); err != nil {
			continue
		}
		if existing.TeamColor == nil && existing.TeamName != nil {
			if c, ok := parser.TeamColorFallback(*existing.TeamName); ok {
				existing.TeamColor = &c
			}
		}
		a.driverOverlay[num] = existing
		a.snap.Drivers[num] = domain.Driver{
			DriverNumber: num,
			Abbreviation: derefStr(existing.Abbreviation),
			FirstName:    derefStr(existing.FirstName),
			LastName:     derefStr(existing.LastName),
			TeamName:     derefStr(existing.TeamName),
			TeamColor:    derefStr(existing.TeamColor),
			CountryCode:  derefStr(existing.CountryCode),
		}
	}
}

func (a *Accumulator) applyTimingData(raw []byte) {
	for num, diff := range parser.ParseTimingData(raw) {
		existing := a.timingOverlay[num]
		if err := mergo.Merge(&existing, diff, mergo.WithOverride); err != nil {
			continue
		}
		a.timingOverlay[num] = existing
		row := domain.TimingRow{
			GapToLeader: derefStr(existing.GapToLeader),
			Interval:    derefStr(existing.Interval),
			LastLapTime: derefStr(existing.LastLapTime),
			BestLapTime: derefStr(existing.BestLapTime),
			Sector1:     derefStr(existing.Sector1),
			Sector2:     derefStr(existing.Sector2),
			Sector3:     derefStr(existing.Sector3),
			InPit:       derefBool(existing.InPit),
			Retired:     derefBool(existing.Retired),
			Stopped:     derefBool(existing.Stopped),
		}
		if existing.Position != nil {
			if n, err := strconv.Atoi(*existing.Position); err == nil {
				row.Position = n
			}
		}
		a.snap.Timing[num] = row
	}
}

// applyTimingAppData implements the "select the stint at the highest key,
// then replace the driver's stint entry" rule. A stint number that has not
// been seen before for this driver starts from a fresh baseline (a new set
// of tyres); the same stint number seen again is treated as a refinement of
// the existing entry, since the feed sometimes sends TyreAge/New separately
// from Compound within the same stint.
func (a *Accumulator) applyTimingAppData(raw []byte) {
	for num, stints := range parser.ParseTimingAppData(raw) {
		key, ok := highestKey(stints)
		if !ok {
			continue
		}
		stintNum, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		diff := stints[key]

		base := domain.Stint{StintNumber: stintNum}
		if existing, had := a.snap.Stints[num]; had && existing.StintNumber == stintNum {
			base = existing
		}
		if diff.Compound != nil {
			base.Compound = parseCompound(*diff.Compound)
		}
		if diff.TotalLaps != nil {
			base.TyreAge = *diff.TotalLaps
		}
		if diff.New != nil {
			base.New = *diff.New == "true" || *diff.New == "1"
		}
		a.snap.Stints[num] = base
	}
}

// sessionDateLayout matches the feed's session timestamps once its
// colon-separated GMT offset ("+03:00:00") has been trimmed to
// hour/minute and appended directly to the date, e.g. "...T05:00:00+0300".
const sessionDateLayout = "2006-01-02T15:04:05-0700"

func (a *Accumulator) applySessionInfo(raw []byte) {
	diff := parser.ParseSessionInfo(raw)
	info := domain.SessionInfo{
		Key:       derefInt(diff.Key),
		Name:      derefStr(diff.Name),
		Type:      domain.ParseSessionType(derefStr(diff.Type)),
		Circuit:   derefStr(diff.Circuit),
		Country:   derefStr(diff.Country),
		StartTime: parseSessionDate(diff.StartDate, diff.GMTOffset),
		EndTime:   parseSessionDate(diff.EndDate, diff.GMTOffset),
	}
	a.snap.SessionInfo = &info
}

func parseSessionDate(date, gmtOffset *string) time.Time {
	if date == nil {
		return time.Time{}
	}
	offset := "+0000"
	if gmtOffset != nil {
		parts := strings.Split(*gmtOffset, ":")
		if len(parts) >= 2 {
			offset = parts[0] + parts[1]
		}
	}
	t, err := time.Parse(sessionDateLayout, *date+offset)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (a *Accumulator) applyLapCount(raw []byte) {
	diff := parser.ParseLapCount(raw)
	a.snap.LapCount = domain.LapCount{
		Current: derefInt(diff.CurrentLap),
		Total:   derefInt(diff.TotalLaps),
	}
}

func (a *Accumulator) applyWeather(raw []byte) {
	diff := parser.ParseWeather(raw)
	if err := mergo.Merge(&a.weatherOverlay, diff, mergo.WithOverride); err != nil {
		return
	}
	a.hasWeather = true
	a.snap.Weather = &domain.Weather{
		AirTemp:       derefFloat(a.weatherOverlay.AirTemp),
		TrackTemp:     derefFloat(a.weatherOverlay.TrackTemp),
		Humidity:      derefFloat(a.weatherOverlay.Humidity),
		Rainfall:      derefBool(a.weatherOverlay.Rainfall),
		WindSpeed:     derefFloat(a.weatherOverlay.WindSpeed),
		WindDirection: derefFloat(a.weatherOverlay.WindDirection),
		Pressure:      derefFloat(a.weatherOverlay.Pressure),
	}
}

func (a *Accumulator) applyPitLaneTimes(raw []byte) {
	for num, diff := range parser.ParsePitLaneTimeCollection(raw) {
		existing := a.pitOverlay[num]
		if err := mergo.Merge(&existing, diff, mergo.WithOverride); err != nil {
			continue
		}
		a.pitOverlay[num] = existing
		a.snap.PitLaneTimes[num] = domain.PitLaneTime{
			Duration: derefStr(existing.Duration),
			Lap:      derefInt(existing.Lap),
		}
	}
}

func (a *Accumulator) applyTopThree(raw []byte) {
	diff := parser.ParseTopThree(raw)
	if diff.Withheld {
		a.snap.TopThree = nil
		return
	}
	rows := make([]domain.TopThreeEntry, 0, len(diff.Lines))
	for _, l := range diff.Lines {
		pos, _ := strconv.Atoi(l.Position)
		rows = append(rows, domain.TopThreeEntry{
			Position:     pos,
			DriverNumber: l.RacingNumber,
			Abbreviation: l.Tla,
			TeamColor:    l.TeamColour,
			LapTime:      l.LapTime,
			GapToLeader:  l.DiffToLeader,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	a.snap.TopThree = rows
}

func (a *Accumulator) applyRaceControl(raw []byte) {
	diff, ok := parser.ParseRaceControlMessages(raw)
	if !ok || diff.Message == "" {
		return
	}
	a.snap.LatestRaceControlMessage = &domain.RaceControlMessage{
		UTC:          parseFeedTime(&diff.UTC),
		Message:      diff.Message,
		Category:     diff.Category,
		Flag:         diff.Flag,
		Scope:        domain.RaceControlScope(diff.Scope),
		Sector:       diff.Sector,
		RacingNumber: diff.RacingNumber,
	}
}

func parseCompound(raw string) domain.TireCompound {
	switch raw {
	case "SOFT":
		return domain.TireCompoundSoft
	case "MEDIUM":
		return domain.TireCompoundMedium
	case "HARD":
		return domain.TireCompoundHard
	case "INTERMEDIATE":
		return domain.TireCompoundIntermediate
	case "WET":
		return domain.TireCompoundWet
	default:
		return domain.TireCompoundUnknown
	}
}

// parseFeedTime accepts the feed's naive local timestamp ("2024-03-02T13:15:32")
// and parses it as UTC. The feed's separate GMT-offset field is intentionally
// not applied here: session timestamps are used only for relative ordering
// within one session, and the offset format ("+03:00:00") is not a valid
// zone offset under RFC 3339.
func parseFeedTime(raw *string) time.Time {
	if raw == nil || *raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999Z", "2006-01-02T15:04:05.999", "2006-01-02T15:04:05Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func highestKey[T any](m map[string]T) (key string, ok bool) {
	best := -1
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if n > best {
			best = n
			key = k
			ok = true
		}
	}
	return key, ok
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}

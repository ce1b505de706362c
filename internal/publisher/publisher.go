// Package publisher projects the pipeline's output onto an MQTT topic
// hierarchy: entity discovery configs for a home-automation platform, plain
// state topics, an unretained event stream, and compact payloads for
// LED-matrix notifier devices.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
)

// FlagAppearance is the LED-matrix decoration for one flag state.
type FlagAppearance struct {
	BackgroundColor string
	Text            string
	Effect          string
	DarkText        bool
}

// flagAppearances is the fixed flag-appearance table.
var flagAppearances = map[domain.Flag]FlagAppearance{
	domain.FlagGreen:     {BackgroundColor: "00FF00", Text: "GREEN", DarkText: false},
	domain.FlagYellow:    {BackgroundColor: "FFFF00", Text: "YELLOW", DarkText: true},
	domain.FlagRed:       {BackgroundColor: "FF0000", Text: "RED FLAG", Effect: "Pulse", DarkText: false},
	domain.FlagSC:        {BackgroundColor: "FFA500", Text: "SAFETY CAR", Effect: "Pulse", DarkText: false},
	domain.FlagVSC:       {BackgroundColor: "FFA500", Text: "VSC", DarkText: false},
	domain.FlagVSCEnding: {BackgroundColor: "00FF00", Text: "VSC END", DarkText: false},
	domain.FlagChequered: {BackgroundColor: "FFFFFF", Text: "CHEQUERED", DarkText: true},
}

// Notification is the decorated payload sent to the notifier's notify
// topic alongside every event.
type Notification struct {
	Message string `json:"message"`
	Color   string `json:"color"`
	Effect  string `json:"effect,omitempty"`
	Duration int   `json:"durationMs"`
	Wakeup  bool   `json:"wakeup"`
}

const (
	defaultDuration = 3000
	overtakeDuration = 4000
)

// Config configures a Publisher.
type Config struct {
	Prefix           string
	FavouriteDrivers []string
	NotifierEnabled  bool
	NotifyTopic      string
}

// Publisher owns one MQTT client and translates pipeline output into the
// bus's topic hierarchy. It is the sole writer of the "ephemeral" topic
// set: written only by register/deregister, read only by deregister.
type Publisher struct {
	log    *slog.Logger
	client mqtt.Client
	cfg    Config

	mu               sync.Mutex
	sessionActive    bool
	ephemeralTopics  []string
}

// New returns a Publisher that will use client to publish. The MQTT
// client's connect options (broker URL, LWT, credentials) are the caller's
// responsibility to configure before Connect is called; NewClientOptions
// is the idiomatic paho entry point for that.
func New(client mqtt.Client, cfg Config, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "f12mqtt"
	}
	if cfg.NotifyTopic == "" {
		cfg.NotifyTopic = cfg.Prefix + "/notify"
	}
	return &Publisher{log: log, client: client, cfg: cfg}
}

// NewClientOptions builds a paho ClientOptions with the status topic wired
// as Last-Will, offline on disconnect and online once Connect succeeds.
func NewClientOptions(broker, clientID, prefix string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetWill(prefix+"/status", "offline", 1, true).
		SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		c.Publish(prefix+"/status", 1, true, "online")
	})
	return opts
}

func (p *Publisher) topic(parts ...string) string {
	t := p.cfg.Prefix
	for _, part := range parts {
		t += "/" + part
	}
	return t
}

func (p *Publisher) publish(topic string, retained bool, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("publisher: marshal payload", "topic", topic, "error", err)
		return
	}
	token := p.client.Publish(topic, 0, retained, body)
	if !token.WaitTimeout(0) {
		// fire-and-forget: publisher never blocks the pipeline goroutine on ack
		return
	}
	if err := token.Error(); err != nil {
		p.log.Error("publisher: publish failed", "topic", topic, "error", err)
	}
}

func (p *Publisher) publishString(topic string, retained bool, value string) {
	token := p.client.Publish(topic, 0, retained, value)
	token.WaitTimeout(0)
}

// discoveryConfig is a minimal Home-Assistant-style MQTT discovery payload.
type discoveryConfig struct {
	Name        string `json:"name"`
	UniqueID    string `json:"unique_id"`
	StateTopic  string `json:"state_topic"`
	Component   string `json:"component"`
}

func (p *Publisher) publishDiscovery(configTopic, name, uniqueID, stateTopic, component string) {
	p.publish(configTopic, true, discoveryConfig{
		Name:       name,
		UniqueID:   uniqueID,
		StateTopic: stateTopic,
		Component:  component,
	})
}

// RegisterPersistentEntities publishes discovery configs for entities that
// live for the process lifetime, independent of any session: standings and
// next-race schedule.
func (p *Publisher) RegisterPersistentEntities() {
	entities := []struct{ name, id, state string }{
		{"Last Race Winner", "last_winner", p.topic("standings", "last_winner")},
		{"Drivers Championship Leader", "drivers_leader", p.topic("standings", "drivers_leader")},
		{"Constructors Championship Leader", "constructors_leader", p.topic("standings", "constructors_leader")},
		{"Next Race", "next_race", p.topic("schedule", "next_race")},
	}
	for _, e := range entities {
		p.publishDiscovery(p.discoveryConfigTopic(e.id), e.name, e.id, e.state, "sensor")
	}
}

func (p *Publisher) discoveryConfigTopic(objectID string) string {
	return fmt.Sprintf("homeassistant/sensor/%s/%s/config", p.cfg.Prefix, objectID)
}

// RegisterSessionEntities publishes discovery configs for the base session
// entities, three per favourite driver, and the playback status entity,
// remembers every discovery topic it wrote, marks the session active, and
// enables state publication.
func (p *Publisher) RegisterSessionEntities() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var topics []string

	base := []struct{ id, name string }{
		{"flag", "Track Flag"},
		{"leader", "Race Leader"},
		{"lap", "Lap"},
		{"weather", "Weather"},
		{"race_control", "Race Control"},
		{"playback_status", "Playback Status"},
	}
	for _, e := range base {
		ct := p.discoveryConfigTopic(e.id)
		state := p.topic("session", e.id)
		if e.id == "playback_status" {
			state = p.topic("playback", "state")
		}
		p.publishDiscovery(ct, e.name, e.id, state, "sensor")
		topics = append(topics, ct)
	}

	for _, num := range p.cfg.FavouriteDrivers {
		for _, attr := range []string{"position", "gap", "tyre"} {
			id := fmt.Sprintf("driver_%s_%s", num, attr)
			ct := p.discoveryConfigTopic(id)
			p.publishDiscovery(ct, fmt.Sprintf("Driver %s %s", num, attr), id, p.topic("driver", num, attr), "sensor")
			topics = append(topics, ct)
		}
	}

	p.ephemeralTopics = topics
	p.sessionActive = true
	p.publishString(p.topic("session", "status"), true, "active")
}

// DeregisterSessionEntities publishes an empty retained payload to every
// discovery topic remembered by RegisterSessionEntities (the home-
// automation platform interprets an empty config payload as removal),
// marks the session finished, forgets the topic set, and disables state
// publication.
func (p *Publisher) DeregisterSessionEntities() {
	p.mu.Lock()
	topics := p.ephemeralTopics
	p.ephemeralTopics = nil
	p.sessionActive = false
	p.mu.Unlock()

	for _, t := range topics {
		p.publishString(t, true, "")
	}
	p.publishString(p.topic("session", "status"), true, "finished")
}

func (p *Publisher) isSessionActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionActive
}

// PublishState projects one snapshot onto the session/driver state topics.
// It is a no-op if the session is not active.
func (p *Publisher) PublishState(s domain.Snapshot) {
	if !p.isSessionActive() {
		return
	}

	p.publishString(p.topic("session", "flag"), true, string(s.TrackStatus.Flag))
	if s.LapCount.Total > 0 {
		p.publish(p.topic("session", "lap"), true, s.LapCount)
	}
	if s.Weather != nil {
		p.publish(p.topic("session", "weather"), true, s.Weather)
	}
	if s.SessionInfo != nil {
		p.publish(p.topic("session", "info"), true, s.SessionInfo)
	}
	if s.LatestRaceControlMessage != nil {
		p.publish(p.topic("session", "race_control"), true, s.LatestRaceControlMessage)
	}

	p.publishLeader(s)

	for _, num := range p.cfg.FavouriteDrivers {
		p.publishFavouriteDriver(s, num)
	}

	if p.cfg.NotifierEnabled {
		p.publishNotifierState(s)
	}
}

type leaderPayload struct {
	DriverNumber string `json:"driverNumber"`
	Abbreviation string `json:"abbreviation"`
	TeamColor    string `json:"teamColor"`
	Gap          string `json:"gap"`
}

func (p *Publisher) leader(s domain.Snapshot) (string, domain.TimingRow, bool) {
	for num, row := range s.Timing {
		if row.Position == 1 {
			return num, row, true
		}
	}
	return "", domain.TimingRow{}, false
}

func (p *Publisher) publishLeader(s domain.Snapshot) {
	num, _, ok := p.leader(s)
	if !ok {
		return
	}
	driver := s.Drivers[num]
	p.publish(p.topic("session", "leader"), true, leaderPayload{
		DriverNumber: num,
		Abbreviation: driver.Abbreviation,
		TeamColor:    driver.TeamColor,
		Gap:          "LEADER",
	})
}

func driverStatus(row domain.TimingRow) string {
	switch {
	case row.Retired:
		return "retired"
	case row.InPit:
		return "pit"
	default:
		return "racing"
	}
}

func (p *Publisher) publishFavouriteDriver(s domain.Snapshot, num string) {
	row, ok := s.Timing[num]
	if !ok {
		return
	}
	gap := row.GapToLeader
	if row.Position == 1 {
		gap = "LEADER"
	}
	p.publish(p.topic("driver", num, "position"), true, row.Position)
	p.publishString(p.topic("driver", num, "gap"), true, gap)
	p.publish(p.topic("driver", num, "tyre"), true, s.Stints[num])
	p.publishString(p.topic("driver", num, "status"), true, driverStatus(row))
}

// flagAppPayload / lapAppPayload / driverAppPayload / topThreeAppPayload are
// the compact projections the LED-matrix notifier app subscribes to; each
// is small enough to fit on a constrained display without further parsing.
type flagAppPayload struct {
	Flag FlagAppearance `json:"flag"`
}

type lapAppPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type driverAppPayload struct {
	Abbreviation string `json:"abbreviation"`
	TeamColor    string `json:"teamColor"`
	Position     int    `json:"position"`
	Gap          string `json:"gap"`
}

func (p *Publisher) publishNotifierState(s domain.Snapshot) {
	if appearance, ok := flagAppearances[s.TrackStatus.Flag]; ok {
		p.publish(p.topic("notifier", "app", "flag"), false, flagAppPayload{Flag: appearance})
	}
	if s.LapCount.Total > 0 {
		p.publish(p.topic("notifier", "app", "lap"), false, lapAppPayload{Current: s.LapCount.Current, Total: s.LapCount.Total})
	}

	apps := make([]driverAppPayload, 0, len(p.cfg.FavouriteDrivers))
	for _, num := range p.cfg.FavouriteDrivers {
		row, ok := s.Timing[num]
		if !ok {
			continue
		}
		gap := row.GapToLeader
		if row.Position == 1 {
			gap = "LEADER"
		}
		apps = append(apps, driverAppPayload{
			Abbreviation: s.Drivers[num].Abbreviation,
			TeamColor:    s.Drivers[num].TeamColor,
			Position:     row.Position,
			Gap:          gap,
		})
	}
	if len(apps) > 0 {
		p.publish(p.topic("notifier", "app", "drivers"), false, apps)
	}

	if len(s.TopThree) > 0 {
		p.publish(p.topic("notifier", "app", "top_three"), false, s.TopThree)
	}
}

// PublishEvents publishes each event, unretained, to its event topic, and,
// when the notifier is enabled, a decorated notification alongside it.
func (p *Publisher) PublishEvents(events []domain.Event) {
	for _, e := range events {
		p.publishEvent(e)
	}
}

func (p *Publisher) publishEvent(e domain.Event) {
	switch ev := e.(type) {
	case domain.FlagChangeEvent:
		p.publish(p.topic("event", "flag"), false, ev)
		if p.cfg.NotifierEnabled {
			p.notify(flagNotification(ev))
		}
	case domain.OvertakeEvent:
		p.publish(p.topic("event", "overtake"), false, ev)
		if p.cfg.NotifierEnabled {
			p.notify(Notification{
				Message:  fmt.Sprintf("%s OVERTAKES %s", ev.OvertakingAbbreviation, ev.OvertakenAbbreviation),
				Color:    ev.OvertakingTeamColor,
				Effect:   "Flash",
				Duration: overtakeDuration,
				Wakeup:   true,
			})
		}
	case domain.PitStopEvent:
		p.publish(p.topic("event", "pit_stop"), false, ev)
		if p.cfg.NotifierEnabled {
			p.notify(Notification{
				Message:  fmt.Sprintf("%s PIT STOP", ev.Abbreviation),
				Color:    ev.TeamColor,
				Duration: defaultDuration,
			})
		}
	case domain.WeatherChangeEvent:
		p.publish(p.topic("event", "weather"), false, ev)
		if p.cfg.NotifierEnabled {
			msg := "RAIN"
			if !ev.NewRainfall {
				msg = "TRACK DRYING"
			}
			p.notify(Notification{Message: msg, Color: "0000FF", Duration: defaultDuration, Wakeup: ev.NewRainfall})
		}
	}
}

func flagNotification(ev domain.FlagChangeEvent) Notification {
	appearance, ok := flagAppearances[ev.NewFlag]
	if !ok {
		appearance = FlagAppearance{BackgroundColor: "FFFFFF", Text: string(ev.NewFlag)}
	}
	return Notification{
		Message:  appearance.Text,
		Color:    appearance.BackgroundColor,
		Effect:   appearance.Effect,
		Duration: defaultDuration,
		Wakeup:   true,
	}
}

func (p *Publisher) notify(n Notification) {
	p.publish(p.cfg.NotifyTopic, false, n)
}

// PublishPlaybackState publishes the playback controller's current state.
func (p *Publisher) PublishPlaybackState(state string) {
	p.publishString(p.topic("playback", "state"), true, state)
}

// SubscribeCommands registers a handler for playback commands published to
// P/playback/command.
func (p *Publisher) SubscribeCommands(handler func(command, value string)) error {
	token := p.client.Subscribe(p.topic("playback", "command"), 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cmd struct {
			Command string `json:"command"`
			Value   string `json:"value"`
		}
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			p.log.Warn("publisher: malformed playback command", "error", err)
			return
		}
		handler(cmd.Command, cmd.Value)
	})
	token.Wait()
	return token.Error()
}

// pipelineObserver adapts Publisher to pipeline.Observer so it can be
// subscribed directly to a Pipeline or playback Controller.
type pipelineObserver struct {
	p *Publisher
}

// AsPipelineObserver returns a pipeline.Observer that forwards updates and
// events to p.
func (p *Publisher) AsPipelineObserver() pipeline.Observer {
	return pipelineObserver{p: p}
}

func (o pipelineObserver) OnEvent(domain.Event) {
	// events are published as a batch from OnUpdate, in detection order, to
	// give the event feed the same ordering the pipeline computed.
}

func (o pipelineObserver) OnUpdate(u pipeline.Update) {
	o.p.PublishEvents(u.Events)
	o.p.PublishState(u.Snapshot)
}

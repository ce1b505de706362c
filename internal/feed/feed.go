// Package feed adapts the upstream live-timing WebSocket protocol into the
// canonical (topic, data, timestamp) triples internal/pipeline consumes. It
// owns the SignalR negotiate/subscribe/connect handshake and the
// change-vs-reference message split; everything downstream of that is the
// Pipeline's problem, not this package's.
package feed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/coder/websocket"
	"github.com/klauspost/compress/flate"

	"github.com/bcdxn/f1mqtt/internal/pipeline"
)

const reconnectBackoff = 2 * time.Second

var subscribedTopics = []string{
	"Heartbeat",
	"TimingStats",
	"TimingAppData",
	"TrackStatus",
	"DriverList",
	"RaceControlMessages",
	"SessionInfo",
	"SessionData",
	"LapCount",
	"TimingData",
	"WeatherData",
	"PitLaneTimeCollection",
	"TopThree",
	"CarData.z",
	"Position.z",
	"ExtrapolatedClock",
}

// kfRe strips the feed's occasional "_kf" bookkeeping property, which
// breaks strict JSON unmarshalling of the reference message's outer shape.
var kfRe = regexp.MustCompile(`,\s*"_kf":\s*(?:true|false)(,[^}])?`)

// Adapter drives one live WebSocket connection and pushes every message it
// decodes through a Pipeline. It reconnects on read failure with a fixed
// backoff, per spec's transient-I/O tolerance.
type Adapter struct {
	log *slog.Logger

	httpBaseURL string
	wsBaseURL   string

	pipeline *pipeline.Pipeline

	connectionToken string
	cookie          string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPBaseURL overrides the negotiate endpoint's base URL; primarily
// used for testing against a fake server.
func WithHTTPBaseURL(u string) Option { return func(a *Adapter) { a.httpBaseURL = u } }

// WithWSBaseURL overrides the WebSocket endpoint's base URL.
func WithWSBaseURL(u string) Option { return func(a *Adapter) { a.wsBaseURL = u } }

// WithLogger overrides the adapter's logger.
func WithLogger(l *slog.Logger) Option { return func(a *Adapter) { a.log = l } }

// New returns an Adapter that pushes decoded messages into p.
func New(p *pipeline.Pipeline, opts ...Option) *Adapter {
	a := &Adapter{
		log:         slog.Default(),
		httpBaseURL: "https://livetiming.formula1.com",
		wsBaseURL:   "wss://livetiming.formula1.com",
		pipeline:    p,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run connects and processes messages until ctx is cancelled, reconnecting
// on transient failures with a fixed backoff. It returns when ctx is
// cancelled or a non-recoverable error occurs.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		err := a.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			a.log.Warn("feed disconnected, reconnecting", "error", err, "backoff", reconnectBackoff)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectBackoff):
		}
	}
}

func (a *Adapter) runOnce(ctx context.Context) error {
	if err := a.negotiate(ctx); err != nil {
		return fmt.Errorf("feed: negotiate: %w", err)
	}

	u, err := a.websocketURL()
	if err != nil {
		return fmt.Errorf("feed: build websocket url: %w", err)
	}

	headers := make(http.Header)
	headers.Add("User-Agent", "BestHTTP")
	headers.Add("Accept-Encoding", "gzip,identity")
	headers.Add("Cookie", a.cookie)

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return fmt.Errorf("feed: dial websocket: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(-1)

	if err := a.subscribe(ctx, conn); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				conn.Close(websocket.StatusNormalClosure, "client closed")
				return nil
			}
			return err
		}
		a.processMessage(msg)
	}
}

func (a *Adapter) negotiate(ctx context.Context) error {
	base, err := url.Parse(a.httpBaseURL)
	if err != nil {
		return fmt.Errorf("invalid http base url: %w", err)
	}
	req := &http.Request{
		Method: http.MethodPost,
		URL: &url.URL{
			Scheme: base.Scheme,
			Host:   base.Host,
			Path:   "/signalr/negotiate",
			RawQuery: url.Values{
				"connectionData": {`[{"Name":"Streaming"}]`},
				"clientProtocol": {"1.5"},
			}.Encode(),
		},
	}
	req = req.WithContext(ctx)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("negotiate returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var n struct {
		ConnectionToken string `json:"ConnectionToken"`
	}
	if err := json.Unmarshal(body, &n); err != nil {
		return err
	}
	a.connectionToken = n.ConnectionToken
	a.cookie = resp.Header.Get("set-cookie")
	return nil
}

func (a *Adapter) websocketURL() (*url.URL, error) {
	base, err := url.Parse(a.wsBaseURL)
	if err != nil {
		return nil, err
	}
	return &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/signalr/connect",
		RawQuery: url.Values{
			"connectionData":  {`[{"Name":"Streaming"}]`},
			"connectionToken": {a.connectionToken},
			"clientProtocol":  {"1.5"},
			"transport":       {"webSockets"},
		}.Encode(),
	}, nil
}

func (a *Adapter) subscribe(ctx context.Context, conn *websocket.Conn) error {
	payload, err := json.Marshal(struct {
		H string     `json:"H"`
		M string     `json:"M"`
		A [][]string `json:"A"`
		I int        `json:"I"`
	}{H: "Streaming", M: "Subscribe", A: [][]string{subscribedTopics}, I: 1})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

// signalrEnvelope is the outer shape of every SignalR frame: M carries zero
// or more change messages, R carries the single reference message.
type signalrEnvelope struct {
	Changes   json.RawMessage `json:"M"`
	Reference json.RawMessage `json:"R"`
}

type changeMessage struct {
	Hub       string            `json:"H"`
	Message   string            `json:"M"`
	Arguments []json.RawMessage `json:"A"`
}

func (a *Adapter) processMessage(raw []byte) {
	var envelope signalrEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		a.log.Debug("feed: unrecognised frame", "error", err)
		return
	}

	if len(envelope.Reference) > 0 {
		a.processReference(envelope.Reference)
	}
	if len(envelope.Changes) > 0 {
		a.processChanges(envelope.Changes)
	}
}

func (a *Adapter) processReference(raw []byte) {
	cleaned := kfRe.ReplaceAllString(string(raw), "")
	var ref map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &ref); err != nil {
		a.log.Warn("feed: malformed reference message", "error", err)
		return
	}
	now := time.Now().UTC()
	for topic, data := range ref {
		a.emit(topic, data, now)
	}
}

func (a *Adapter) processChanges(raw []byte) {
	var changes []changeMessage
	if err := json.Unmarshal(raw, &changes); err != nil {
		a.log.Warn("feed: malformed change message", "error", err)
		return
	}
	for _, c := range changes {
		if c.Hub != "Streaming" || c.Message != "feed" || len(c.Arguments) < 2 {
			continue
		}
		var topic string
		if err := json.Unmarshal(c.Arguments[0], &topic); err != nil {
			continue
		}
		ts := time.Now().UTC()
		if len(c.Arguments) >= 3 {
			var tsStr string
			if err := json.Unmarshal(c.Arguments[2], &tsStr); err == nil {
				if parsed, err := time.Parse(time.RFC3339, tsStr); err == nil {
					ts = parsed.UTC()
				}
			}
		}
		a.emit(topic, c.Arguments[1], ts)
	}
}

// emit strips the ".z" suffix and inflates the raw-DEFLATE base64 topics
// (CarData.z, Position.z), then pushes the decoded payload through the
// Pipeline under its canonical (unsuffixed) topic name.
func (a *Adapter) emit(topic string, data json.RawMessage, ts time.Time) {
	const zSuffix = ".z"
	if len(topic) > len(zSuffix) && topic[len(topic)-len(zSuffix):] == zSuffix {
		inflated, err := inflateZ(data)
		if err != nil {
			a.log.Warn("feed: failed to inflate compressed topic", "topic", topic, "error", err)
			return
		}
		topic = topic[:len(topic)-len(zSuffix)]
		data = inflated
	}
	a.pipeline.Process(pipeline.Message{Topic: topic, Data: data, Timestamp: ts})
}

func inflateZ(raw json.RawMessage) ([]byte, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("decode base64 envelope: %w", err)
	}
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	return io.ReadAll(r)
}

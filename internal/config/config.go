// Package config resolves f1mqtt's settings from CLI flags, environment
// variables (prefixed F1MQTT_) and an optional config file, following the
// cobra/viper composition the wider example pack uses: viper resolves env
// and file values once at startup and writes them onto every flag the user
// did not pass, so the flags hold the final value (flag > env > file >
// default).
package config

// Config is the fully resolved process configuration.
type Config struct {
	// Upstream feed
	FeedHTTPBaseURL string
	FeedWSBaseURL   string

	// MQTT bus
	BrokerURL      string
	BrokerUsername string
	BrokerPassword string
	ClientID       string
	TopicPrefix    string

	// Domain
	FavouriteDrivers []string
	NotifierEnabled  bool

	// Recording / replay
	RecordingsDir     string
	HistoricalBaseURL string
}

// Defaults returns the configuration used when no flag, env var or config
// file supplies a value.
func Defaults() Config {
	return Config{
		FeedHTTPBaseURL:  "https://livetiming.formula1.com",
		FeedWSBaseURL:    "wss://livetiming.formula1.com",
		BrokerURL:        "tcp://localhost:1883",
		ClientID:         "f1mqtt",
		TopicPrefix:      "f12mqtt",
		FavouriteDrivers: nil,
		NotifierEnabled:  false,
		RecordingsDir:    "./recordings",
	}
}

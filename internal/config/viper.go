package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix viper requires on every environment variable
// this process reads (F1MQTT_BROKER_URL, F1MQTT_TOPIC_PREFIX, ...).
const EnvPrefix = "F1MQTT"

// BindPersistentFlags registers the shared flags every subcommand accepts
// on cmd's persistent flag set, seeded from Defaults().
func BindPersistentFlags(cmd *cobra.Command) {
	d := Defaults()
	flags := cmd.PersistentFlags()
	flags.String("feed-http-base-url", d.FeedHTTPBaseURL, "base URL for the upstream feed's negotiate endpoint")
	flags.String("feed-ws-base-url", d.FeedWSBaseURL, "base URL for the upstream feed's websocket endpoint")
	flags.String("broker-url", d.BrokerURL, "MQTT broker URL")
	flags.String("broker-username", d.BrokerUsername, "MQTT broker username")
	flags.String("broker-password", d.BrokerPassword, "MQTT broker password")
	flags.String("client-id", d.ClientID, "MQTT client id")
	flags.String("topic-prefix", d.TopicPrefix, "MQTT topic prefix")
	flags.StringSlice("favourite-drivers", d.FavouriteDrivers, "driver numbers to publish detailed state for")
	flags.Bool("notifier-enabled", d.NotifierEnabled, "publish decorated notifier payloads")
	flags.String("recordings-dir", d.RecordingsDir, "directory session recordings are written to and read from")
	flags.String("historical-base-url", d.HistoricalBaseURL, "base URL for the historical archive REST API")
}

// InitViper wires cfgFile (if non-empty), F1MQTT_-prefixed env vars, and an
// optional config file into v, then overwrites every flag on cmd that
// wasn't explicitly passed with whatever value viper resolved for it. The
// flags themselves become the single source of truth afterward; call
// FromCommand(cmd) to read the final values back out.
func InitViper(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("f1mqtt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		_ = v.ReadInConfig() // absence of an optional config file is not an error
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindFlags(cmd, v)
	return nil
}

// bindFlags applies viper's resolved value onto every flag on cmd that the
// caller left at its default, the same override-if-unchanged rule
// iracelog-service-manager-go's cmd/root.go uses.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if f.Value.Type() == "stringSlice" {
			_ = cmd.Flags().Set(f.Name, strings.Join(v.GetStringSlice(f.Name), ","))
			return
		}
		_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
	})
}

// FromCommand reads the fully resolved configuration back out of cmd's
// flags, after InitViper has applied env/file fallbacks onto them.
func FromCommand(cmd *cobra.Command) (Config, error) {
	cfg := Defaults()
	flags := cmd.Flags()

	var err error
	get := func(name string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = flags.GetString(name)
		return v
	}

	cfg.FeedHTTPBaseURL = get("feed-http-base-url")
	cfg.FeedWSBaseURL = get("feed-ws-base-url")
	cfg.BrokerURL = get("broker-url")
	cfg.BrokerUsername = get("broker-username")
	cfg.BrokerPassword = get("broker-password")
	cfg.ClientID = get("client-id")
	cfg.TopicPrefix = get("topic-prefix")
	cfg.RecordingsDir = get("recordings-dir")
	cfg.HistoricalBaseURL = get("historical-base-url")
	if err != nil {
		return Config{}, err
	}

	if cfg.FavouriteDrivers, err = flags.GetStringSlice("favourite-drivers"); err != nil {
		return Config{}, err
	}
	if cfg.NotifierEnabled, err = flags.GetBool("notifier-enabled"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

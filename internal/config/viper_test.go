package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	BindPersistentFlags(cmd)
	return cmd
}

func TestFromCommandAppliesDefaultsWhenNothingSet(t *testing.T) {
	cmd := testCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	v := viper.New()
	require.NoError(t, InitViper(v, cmd, ""))

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, Defaults().BrokerURL, cfg.BrokerURL)
	assert.Equal(t, Defaults().TopicPrefix, cfg.TopicPrefix)
}

func TestFromCommandPrefersExplicitFlag(t *testing.T) {
	cmd := testCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--topic-prefix", "custom"}))

	v := viper.New()
	t.Setenv("F1MQTT_TOPIC_PREFIX", "from-env")
	require.NoError(t, InitViper(v, cmd, ""))

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.TopicPrefix)
}

func TestFromCommandReadsEnvVar(t *testing.T) {
	t.Setenv("F1MQTT_BROKER_URL", "tcp://broker.example:1883")

	cmd := testCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	v := viper.New()
	require.NoError(t, InitViper(v, cmd, ""))

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.example:1883", cfg.BrokerURL)
}

func TestFromCommandReadsFavouriteDriversSlice(t *testing.T) {
	cmd := testCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--favourite-drivers", "1,44"}))

	v := viper.New()
	require.NoError(t, InitViper(v, cmd, ""))

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "44"}, cfg.FavouriteDrivers)
}

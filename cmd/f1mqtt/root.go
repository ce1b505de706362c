package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bcdxn/f1mqtt/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "f1mqtt",
		Short: "Bridge the F1 live timing feed onto an MQTT bus",
		Long: "f1mqtt ingests the Formula 1 live timing feed, folds it into a " +
			"structured snapshot, and publishes it to an MQTT broker. It can also " +
			"record sessions to disk and replay them deterministically.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./f1mqtt.yaml)")
	config.BindPersistentFlags(root)

	root.AddCommand(newServeCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newMonitorCmd())

	return root
}

// initViperForCmd binds cmd's persistent flags to viper using cfgFile,
// following the pack's bind-after-parse convention: cobra parses flags
// first, then viper fills in anything left at its default from the
// environment or config file.
func initViperForCmd(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := bindConfig(v, cmd, cfgFile); err != nil {
		return nil, err
	}
	return v, nil
}

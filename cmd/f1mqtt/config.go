package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bcdxn/f1mqtt/internal/config"
)

func bindConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	return config.InitViper(v, cmd, cfgFile)
}

func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	if _, err := initViperForCmd(cmd); err != nil {
		return config.Config{}, err
	}
	return config.FromCommand(cmd)
}

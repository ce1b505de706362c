package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcdxn/f1mqtt/internal/datasource"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions available for replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			recordings, err := datasource.ListRecordings(cfg.RecordingsDir)
			if err != nil {
				return err
			}
			if len(recordings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recordings found in", cfg.RecordingsDir)
				return nil
			}
			for _, name := range recordings {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

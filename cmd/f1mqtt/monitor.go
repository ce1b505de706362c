package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/config"
	"github.com/bcdxn/f1mqtt/internal/feed"
	"github.com/bcdxn/f1mqtt/internal/logger"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
	"github.com/bcdxn/f1mqtt/internal/tui"
)

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run a local operator console against the live feed",
		Long: "monitor opens its own read-only connection to the upstream feed and " +
			"drives a terminal dashboard from it. It publishes nothing and never " +
			"touches the recordings directory; it exists purely for local visibility " +
			"and can run alongside a separate `f1mqtt serve` process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runMonitor(cmd.Context(), cfg)
		},
	}
}

func runMonitor(parent context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New(logger.Config{Format: logger.FormatText})

	acc := accumulator.New()
	p := pipeline.New(acc)

	program := tui.NewLeaderboard(tui.WithContext(ctx))
	p.Subscribe(tui.NewObserver(program))

	adapter := feed.New(p,
		feed.WithHTTPBaseURL(cfg.FeedHTTPBaseURL),
		feed.WithWSBaseURL(cfg.FeedWSBaseURL),
		feed.WithLogger(log),
	)

	go func() {
		if err := adapter.Run(ctx); err != nil {
			log.Error("monitor: feed adapter exited", "error", err)
		}
	}()

	_, err := program.Run()
	cancel()
	return err
}

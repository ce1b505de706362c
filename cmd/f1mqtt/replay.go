package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/config"
	"github.com/bcdxn/f1mqtt/internal/datasource"
	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/logger"
	"github.com/bcdxn/f1mqtt/internal/playback"
	"github.com/bcdxn/f1mqtt/internal/publisher"
	"github.com/bcdxn/f1mqtt/internal/timeline"
)

func newReplayCmd() *cobra.Command {
	var speed float64
	var from string
	var historical bool

	cmd := &cobra.Command{
		Use:   "replay <recording-dir-or-session-key>",
		Short: "Replay a recorded or historical session through the pipeline and publish it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, args[0], speed, from, historical)
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().StringVar(&from, "from", "", "seek to this ISO-8601 timestamp before starting playback")
	cmd.Flags().BoolVar(&historical, "historical", false, "treat the argument as a session key and replay from the historical archive instead of a recording directory")

	return cmd
}

func runReplay(parent context.Context, cfg config.Config, target string, speed float64, from string, historical bool) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New(logger.Config{Format: logger.FormatText})

	var src datasource.DataSource
	if historical {
		src = datasource.NewHistorical(cfg.HistoricalBaseURL, target)
	} else {
		src = datasource.OpenRecorded(target)
	}
	defer src.Close()

	initialState, err := src.InitialState(ctx)
	if err != nil {
		return fmt.Errorf("replay: load initial state: %w", err)
	}
	entries, err := src.Entries(ctx)
	if err != nil {
		return fmt.Errorf("replay: load entries: %w", err)
	}
	tl := timeline.New(entries)

	acc := accumulator.New()
	ctrl := playback.New(acc)

	client := mqtt.NewClient(mqttOptions(cfg))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	pub := publisher.New(client, publisher.Config{
		Prefix:           cfg.TopicPrefix,
		FavouriteDrivers: cfg.FavouriteDrivers,
		NotifierEnabled:  cfg.NotifierEnabled,
	}, log)
	pub.RegisterSessionEntities()
	defer pub.DeregisterSessionEntities()

	ctrl.Pipeline().Subscribe(pub.AsPipelineObserver())

	finished := make(chan struct{})
	ctrl.Subscribe(playbackObserverFunc{onFinished: func() { close(finished) }})

	ctrl.Load(tl, initialState)
	ctrl.SetSpeed(speed)
	if from != "" {
		ctrl.Seek(from)
	}
	ctrl.Play()

	select {
	case <-finished:
	case <-ctx.Done():
		ctrl.Stop()
	}
	return nil
}

// playbackObserverFunc adapts a single OnFinished callback to
// playback.Observer for the replay command's shutdown signal, leaving the
// other hooks as no-ops.
type playbackObserverFunc struct {
	onFinished func()
}

func (f playbackObserverFunc) OnLoaded(domain.Snapshot)                {}
func (f playbackObserverFunc) OnStateChange(playback.State)            {}
func (f playbackObserverFunc) OnSeek(domain.Snapshot, playback.State)  {}
func (f playbackObserverFunc) OnFinished()                             { f.onFinished() }

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bcdxn/f1mqtt/internal/accumulator"
	"github.com/bcdxn/f1mqtt/internal/config"
	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/feed"
	"github.com/bcdxn/f1mqtt/internal/logger"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
	"github.com/bcdxn/f1mqtt/internal/publisher"
	"github.com/bcdxn/f1mqtt/internal/recorder"
)

func newServeCmd() *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the live feed and publish to the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, record)
		},
	}

	cmd.Flags().BoolVar(&record, "record", true, "record the session to the configured recordings directory")

	return cmd
}

func runServe(parent context.Context, cfg config.Config, record bool) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New(logger.Config{Format: logger.FormatJSON})

	acc := accumulator.New()
	p := pipeline.New(acc)

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
	pub.RegisterPersistentEntities()
	pub.RegisterSessionEntities()
	p.Subscribe(pub.AsPipelineObserver())

	rec := recorder.New(log, acc.Snapshot())
	if record {
		p.Subscribe(rec.AsPipelineObserver())
		p.Subscribe(newRecorderStarter(rec, cfg.RecordingsDir, time.Now().UTC(), log))
		defer rec.Stop(time.Now().UTC())
	}

	adapter := feed.New(p,
		feed.WithHTTPBaseURL(cfg.FeedHTTPBaseURL),
		feed.WithWSBaseURL(cfg.FeedWSBaseURL),
		feed.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return adapter.Run(gctx) })

	<-gctx.Done()
	pub.DeregisterSessionEntities()
	return g.Wait()
}

// mqttOptions builds the paho client options for cfg, wiring the Last-Will
// status topic the way publisher.NewClientOptions defines it.
func mqttOptions(cfg config.Config) *mqtt.ClientOptions {
	opts := publisher.NewClientOptions(cfg.BrokerURL, cfg.ClientID, cfg.TopicPrefix)
	if cfg.BrokerUsername != "" {
		opts.SetUsername(cfg.BrokerUsername)
		opts.SetPassword(cfg.BrokerPassword)
	}
	return opts
}

// recorderStarter watches the live pipeline for the first snapshot carrying
// SessionInfo and starts rec with that snapshot's identity. Until then, rec
// buffers every message it sees (see recorder.Recorder), so nothing between
// process start and SessionInfo's arrival is lost. rec is constructed with
// the accumulator's pre-message baseline, so subscribe.json reflects that
// baseline rather than the identity snapshot passed here.
type recorderStarter struct {
	rec       *recorder.Recorder
	baseDir   string
	startTime time.Time
	log       *slog.Logger
	started   bool
}

func newRecorderStarter(rec *recorder.Recorder, baseDir string, startTime time.Time, log *slog.Logger) *recorderStarter {
	return &recorderStarter{rec: rec, baseDir: baseDir, startTime: startTime, log: log}
}

func (s *recorderStarter) OnEvent(domain.Event) {}

func (s *recorderStarter) OnUpdate(u pipeline.Update) {
	if s.started || u.Snapshot.SessionInfo == nil {
		return
	}
	s.started = true

	info := u.Snapshot.SessionInfo
	meta := recorder.Metadata{
		SessionKey:  strconv.Itoa(info.Key),
		Year:        info.StartTime.Year(),
		SessionName: info.Name,
		SessionType: string(info.Type),
		Circuit:     info.Circuit,
		StartTime:   s.startTime,
	}
	if err := s.rec.Start(s.baseDir, meta); err != nil {
		s.log.Error("serve: failed to start recorder, continuing unrecorded", "error", err)
	}
}

package main

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lotto/go/internal/admin"
	"github.com/mcdev12/lotto/go/internal/bot"
	"github.com/mcdev12/lotto/go/internal/config"
	"github.com/mcdev12/lotto/go/internal/events"
	"github.com/mcdev12/lotto/go/internal/game"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/metrics"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/mcdev12/lotto/go/internal/transport/gateway"
	"github.com/mcdev12/lotto/go/internal/transport/telegram"
	"github.com/rs/zerolog/log"
)

type Services struct {
	App       *game.App
	Router    *bot.Router
	Admin     *admin.Handler
	Metrics   *metrics.Prometheus
	Publisher events.Publisher

	// Poller is nil when no Telegram token is configured.
	Poller *telegram.Poller
	// Gateway is nil when the WebSocket gateway is disabled.
	Gateway *gateway.ConnectionManager
}

func setupServices(ctx context.Context, cfg *config.Config, st store.Store) (*Services, error) {
	svc := &Services{Metrics: metrics.NewPrometheus()}

	publisher, err := setupPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Publisher = events.NewMetricPublisher(publisher, svc.Metrics)

	var (
		tgAPI  telegram.API
		tg     *telegram.Client
		sender messenger.Messenger
	)
	botUsername := cfg.Telegram.Username
	if cfg.Telegram.Token != "" {
		api, err := telegram.NewBotAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return nil, err
		}
		if botUsername == "" {
			botUsername = api.Self.UserName
		}
		log.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
		tgAPI = api
		tg = telegram.NewClient(api)
		sender = tg
	}

	if cfg.HTTP.Gateway {
		svc.Gateway = gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
		if sender == nil {
			sender = svc.Gateway
		} else {
			sender = messenger.NewMirror(tg, svc.Gateway)
		}
	}
	if sender == nil {
		return nil, errors.New("no transport configured: set TELEGRAM_TOKEN or enable the gateway")
	}

	svc.App = game.NewApp(st, sender, svc.Publisher, svc.Metrics, clockwork.NewRealClock(), game.Config{
		BotUsername: botUsername,
	})
	svc.Router = bot.NewRouter(svc.App, sender)
	svc.Admin = admin.NewHandler(svc.App, cfg.HTTP.AdminToken)

	if svc.Gateway != nil {
		svc.Gateway.SetHandler(svc.Router)
	}
	if tgAPI != nil {
		svc.Poller = telegram.NewPoller(tgAPI, svc.Router, svc.App, telegram.PollerConfig{
			Concurrency: cfg.Telegram.Concurrency,
			AdminIDs:    cfg.Telegram.AdminIDs,
		})
	}
	return svc, nil
}

func setupPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		log.Info().Msg("NATS_URL not set, events are only logged")
		return events.NewLogPublisher(), nil
	}

	jsCfg := events.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	if cfg.NATS.StreamName != "" {
		jsCfg.StreamName = cfg.NATS.StreamName
	}
	if cfg.NATS.SubjectPrefix != "" {
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	}
	return events.NewJetStreamPublisher(ctx, jsCfg)
}

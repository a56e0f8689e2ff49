// Command signature-relay runs the Telegram signature relay bot.
// It:
//   - Loads configuration from the environment (and .env), with the bot token optionally
//     given as the first argument or -token.
//   - Opens the configured store (SQLite by default, Postgres or Badger) and migrates it.
//   - Resolves the bot identity, then long-polls getUpdates and relays messages with the
//     sender's signature appended.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM: polling stops and in-flight updates finish.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/signature-relay/config"
	"github.com/onnwee/signature-relay/relay"
	"github.com/onnwee/signature-relay/server"
	"github.com/onnwee/signature-relay/store/backend"
	"github.com/onnwee/signature-relay/telegramapi"
	"github.com/onnwee/signature-relay/telemetry"
)

const version = "1.0.0"

func main() {
	// .env is a local dev convenience; production relies on real env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ApplyArgs(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	log := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("starting signature relay",
		slog.String("version", version),
		slog.String("environment", cfg.Environment),
		slog.String("backend", cfg.Backend),
		slog.String("token", cfg.MaskedToken()))

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("signature-relay", version, log)
	if err != nil {
		log.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("relay stopped with error", slog.Any("err", err))
		stop()
		shutdown()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", slog.Any("err", err))
		}
	}()

	handlers := server.NewHandlers(st, cfg.Backend)
	if cfg.HTTPEnabled() {
		go func() {
			if err := server.Start(ctx, cfg.HTTPAddr, handlers, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server stopped", slog.Any("err", err))
			}
		}()
	}

	api := &telegramapi.Client{Token: cfg.BotToken, BaseURL: cfg.APIBaseURL}
	me, err := api.GetMe(ctx)
	if err != nil {
		return err
	}
	handlers.SetBotUsername(me.Username)
	log.Info("bot identity resolved", slog.String("username", me.Username), slog.Int64("id", me.ID))

	bot := relay.New(api, st, me.Username, log)
	return relay.NewPoller(api, bot, cfg.PollTimeout, log).Run(ctx)
}

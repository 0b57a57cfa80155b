// Entry point for the PromptGenius relay.
//
// Wires configuration, logging, the provider client, the optimizer, and the
// ingress server together, then runs until SIGINT/SIGTERM with a bounded
// drain of in-flight requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/ingress"
	"github.com/jmaietta/promptgenius-backend/internal/monitoring"
	"github.com/jmaietta/promptgenius-backend/internal/optimize"
	"github.com/jmaietta/promptgenius-backend/internal/ratelimit"
	"github.com/jmaietta/promptgenius-backend/internal/upstream"
	"github.com/jmaietta/promptgenius-backend/internal/utils"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	initLogging(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("provider", cfg.Upstream.Provider).
		Str("model", cfg.Upstream.Model).
		Str("api_key", utils.MaskKey(cfg.Upstream.APIKey)).
		Msg("starting PromptGenius relay")
	if cfg.Upstream.APIKey == "" {
		log.Warn().Msg("no provider API key configured; optimize requests will fail with a configuration error")
	}

	adapter, err := upstream.NewAdapter(cfg.Upstream.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("provider setup failed")
	}
	client := upstream.NewClient(cfg.Upstream, adapter)
	optimizer := optimize.New(cfg.Limits, client, cfg.Upstream.APIKey != "")

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max,
		ratelimit.WithMaxBuckets(config.MaxRateLimitBuckets))
	metrics := monitoring.NewMetricsCollector()

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		LogPath: cfg.Monitoring.TelemetryPath,
		DBPath:  cfg.Monitoring.TelemetryDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry setup failed")
	}
	defer func() { _ = tracker.Close() }()

	tracker.RecordInit(&monitoring.InitEvent{
		Timestamp:    time.Now(),
		Event:        "relay_init",
		ServerPort:   cfg.Server.Port,
		Env:          cfg.Env,
		Provider:     cfg.Upstream.Provider,
		Model:        cfg.Upstream.Model,
		HasAPIKey:    cfg.Upstream.APIKey != "",
		RateLimitMax: cfg.RateLimit.Max,
		TelemetryDB:  cfg.Monitoring.TelemetryDB != "",
	})

	server := ingress.New(cfg, optimizer, limiter, metrics, tracker)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("signal received")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
		return
	}
	log.Info().Msg("shutdown complete")
}

// initLogging configures zerolog from the monitoring settings. Console
// output is used when requested or when stderr is a terminal; JSON otherwise.
func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Monitoring.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	useConsole := cfg.Monitoring.LogFormat == "console" ||
		(cfg.Monitoring.LogFormat == "" && term.IsTerminal(int(os.Stderr.Fd())))
	if useConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

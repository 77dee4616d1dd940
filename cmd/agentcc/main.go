package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/centrivo/agentcc/internal/config"
	"github.com/centrivo/agentcc/internal/control"
	"github.com/centrivo/agentcc/pkg/ccclient"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.AccessToken == "" {
		log.Fatal().Msg("ACCESS_TOKEN is required")
	}

	log.Info().
		Str("gateway_url", cfg.GatewayURL).
		Str("notif_url", cfg.NotifURL).
		Str("control_addr", cfg.ControlAddr).
		Str("log_level", cfg.LogLevel).
		Msg("starting agent console")

	client := ccclient.New(ccclient.Config{
		GatewayURL:  cfg.GatewayURL,
		NotifURL:    cfg.NotifURL,
		AccessToken: cfg.AccessToken,
	}, ccclient.Options{}, log.Logger)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log task lifecycle events as they arrive
	go func() {
		for ev := range client.Events() {
			log.Info().
				Str("event", string(ev.Type)).
				Str("interaction_id", ev.Task.ID()).
				Str("state", string(ev.Task.State())).
				Msg("task event")
		}
	}()

	api := control.NewAPI(client, cfg.AllowedOrigins, cfg.RequestTimeout, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- api.Start(ctx, cfg.ControlAddr)
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("control API stopped")
	}

	cancel()
	log.Info().Msg("agent console stopped")
}

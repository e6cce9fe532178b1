package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/zerotwo/platewatch/internal/config"
	"github.com/zerotwo/platewatch/internal/db"
	"github.com/zerotwo/platewatch/internal/httpapi"
	"github.com/zerotwo/platewatch/internal/logging"
	"github.com/zerotwo/platewatch/internal/publish"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "console")
		l.Fatal().Err(err).Msg("config error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", "api").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connection error")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema error")
	}

	srv := httpapi.New(cfg, store, &publish.Snapshot{Path: cfg.SnapshotPath})
	log.Info().Str("addr", cfg.ListenAddr()).Msg("REST API listening")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

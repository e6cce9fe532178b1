package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/zerotwo/platewatch/internal/capture"
	"github.com/zerotwo/platewatch/internal/config"
	"github.com/zerotwo/platewatch/internal/db"
	"github.com/zerotwo/platewatch/internal/disposition"
	"github.com/zerotwo/platewatch/internal/logging"
	"github.com/zerotwo/platewatch/internal/publish"
	"github.com/zerotwo/platewatch/internal/recognize"
	"github.com/zerotwo/platewatch/internal/telemetry"
	"github.com/zerotwo/platewatch/internal/trigger"
	"github.com/zerotwo/platewatch/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "console")
		l.Fatal().Err(err).Msg("config error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", "watcher").Logger()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("watcher failed")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, dir := range []string{cfg.CaptureDir, cfg.FlaggedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	client := recognize.NewClient(&http.Client{Timeout: cfg.InferenceTimeout}, cfg.InferenceURL)
	adapter := recognize.NewAdapter(client, log)

	var camera watcher.Camera
	if cfg.CameraQueueDir != "" {
		log.Info().Str("dir", cfg.CameraQueueDir).Msg("using staged image queue as camera")
		camera = &capture.QueueCamera{QueueDir: cfg.CameraQueueDir, Dir: cfg.CaptureDir, Log: log}
	} else {
		camera = &capture.ExecCamera{Command: cfg.CameraCommand, Args: cfg.CameraArgs, Dir: cfg.CaptureDir, Log: log}
	}

	engine := disposition.New(store, disposition.Zones{Flagged: cfg.FlaggedDir}, nil, log)

	loop := &watcher.Loop{
		Trigger:    trigger.New(cfg.DistanceThreshold, cfg.Cooldown, nil),
		Camera:     camera,
		Recognizer: adapter,
		Resolver:   engine,
		Publisher:  &publish.Snapshot{Path: cfg.SnapshotPath},
		Log:        log,
	}

	if cfg.ProcessDir != "" {
		return loop.ReprocessDir(ctx, cfg.ProcessDir)
	}

	port, err := telemetry.OpenPort(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	log.Info().
		Str("port", cfg.SerialPort).
		Int("baud", cfg.BaudRate).
		Float64("threshold", cfg.DistanceThreshold).
		Dur("cooldown", cfg.Cooldown).
		Msg("watcher started")

	return loop.Run(ctx, port)
}

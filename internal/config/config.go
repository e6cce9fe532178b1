package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSerialPort       = "/dev/ttyUSB0"
	defaultBaudRate         = 9600
	defaultThreshold        = 50.0
	defaultCooldown         = 4 * time.Second
	defaultInferenceURL     = "http://127.0.0.1:8321"
	defaultInferenceTimeout = 20 * time.Second
	defaultCameraCommand    = "rpicam-still"
	defaultCaptureDir       = "captures"
	defaultFlaggedDir       = "flagged"
	defaultSnapshotPath     = "latest_sensor.json"
	defaultPort             = 8080
	defaultListLimit        = 100
)

// Config holds runtime configuration for both the watcher and the API.
type Config struct {
	DatabaseURL string

	SerialPort string
	BaudRate   int

	DistanceThreshold float64
	Cooldown          time.Duration

	CameraCommand  string
	CameraArgs     []string
	CameraQueueDir string

	InferenceURL     string
	InferenceTimeout time.Duration

	CaptureDir   string
	FlaggedDir   string
	SnapshotPath string

	// ProcessDir switches the watcher into one-shot folder reprocessing.
	ProcessDir string

	Port        int
	BearerToken string
	ListLimit   int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		SerialPort:        defaultSerialPort,
		BaudRate:          defaultBaudRate,
		DistanceThreshold: defaultThreshold,
		Cooldown:          defaultCooldown,
		CameraCommand:     defaultCameraCommand,
		InferenceURL:      defaultInferenceURL,
		InferenceTimeout:  defaultInferenceTimeout,
		CaptureDir:        defaultCaptureDir,
		FlaggedDir:        defaultFlaggedDir,
		SnapshotPath:      defaultSnapshotPath,
		Port:              defaultPort,
		ListLimit:         defaultListLimit,
		LogLevel:          "info",
		LogFormat:         "console",
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if v := strings.TrimSpace(os.Getenv("SERIAL_PORT")); v != "" {
		cfg.SerialPort = v
	}

	if v := strings.TrimSpace(os.Getenv("SERIAL_BAUD")); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil || baud <= 0 {
			return cfg, fmt.Errorf("invalid SERIAL_BAUD: %s", v)
		}
		cfg.BaudRate = baud
	}

	if v := strings.TrimSpace(os.Getenv("DISTANCE_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return cfg, fmt.Errorf("invalid DISTANCE_THRESHOLD: %s", v)
		}
		cfg.DistanceThreshold = f
	}

	if v := strings.TrimSpace(os.Getenv("TRIGGER_COOLDOWN")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid TRIGGER_COOLDOWN: %w", err)
		}
		cfg.Cooldown = d
	}

	if v := strings.TrimSpace(os.Getenv("CAMERA_COMMAND")); v != "" {
		parts := strings.Fields(v)
		cfg.CameraCommand = parts[0]
		cfg.CameraArgs = parts[1:]
	}

	cfg.CameraQueueDir = strings.TrimSpace(os.Getenv("CAMERA_QUEUE_DIR"))

	if v := strings.TrimSpace(os.Getenv("INFERENCE_URL")); v != "" {
		cfg.InferenceURL = v
	}

	if v := strings.TrimSpace(os.Getenv("INFERENCE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid INFERENCE_TIMEOUT: %w", err)
		}
		cfg.InferenceTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("CAPTURE_DIR")); v != "" {
		cfg.CaptureDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FLAGGED_DIR")); v != "" {
		cfg.FlaggedDir = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_PATH")); v != "" {
		cfg.SnapshotPath = v
	}

	cfg.ProcessDir = strings.TrimSpace(os.Getenv("PROCESS_DIR"))

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Port = port
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if v := strings.TrimSpace(os.Getenv("API_LIST_LIMIT")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return cfg, fmt.Errorf("invalid API_LIST_LIMIT: %s", v)
		}
		cfg.ListLimit = limit
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

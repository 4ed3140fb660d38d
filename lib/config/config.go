// Package config reads the environment shared by the dashboard and the
// pipeline CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort    = "8080"
	DefaultDataDir = "data/processed"
	DefaultDBPath  = "pipeline.db"
)

type Config struct {
	Port           string
	DataDir        string
	DBPath         string
	PipelineConfig string
	LockDir        string
	LogLevel       slog.Level
}

// Load reads .env when present, then the environment. Variables already set
// in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:           getenv("PORT", DefaultPort),
		DataDir:        getenv("DATA_DIR", DefaultDataDir),
		DBPath:         getenv("DB_PATH", DefaultDBPath),
		PipelineConfig: os.Getenv("PIPELINE_CONFIG"),
		LockDir:        os.Getenv("LOCK_DIR"),
		LogLevel:       level,
	}, nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mvaleed/musicidx/internal/storage"
)

const (
	EnvLogLevel     = "MUSICIDX_LOG_LEVEL"
	EnvMaxRecords   = "MUSICIDX_MAX_RECORDS"
	EnvMaxLineBytes = "MUSICIDX_MAX_LINE_BYTES"
)

type Config struct {
	LogLevel     slog.Level
	MaxRecords   int
	MaxLineBytes int
}

func Default() Config {
	return Config{
		LogLevel:     slog.LevelWarn,
		MaxRecords:   storage.DefaultMaxRecords,
		MaxLineBytes: storage.DefaultMaxLineBytes,
	}
}

// FromEnv builds a Config from getenv, typically os.Getenv. Unset variables
// keep their defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	var err error
	if cfg.MaxRecords, err = boundedInt(getenv, EnvMaxRecords, cfg.MaxRecords, storage.MaxRecordsLimit); err != nil {
		return Config{}, err
	}
	if cfg.MaxLineBytes, err = boundedInt(getenv, EnvMaxLineBytes, cfg.MaxLineBytes, storage.MaxLineBytesLimit); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// boundedInt reads key as an integer in [1, limit].
func boundedInt(getenv func(string) string, key string, def, limit int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	if n > limit {
		return 0, fmt.Errorf("%s: must be at most %d, got %d", key, limit, n)
	}
	return n, nil
}

// LoadOptions returns the table load options for this configuration.
func (c Config) LoadOptions() []storage.LoadOption {
	return []storage.LoadOption{
		storage.WithMaxRecords(c.MaxRecords),
		storage.WithMaxLineBytes(c.MaxLineBytes),
	}
}

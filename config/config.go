// Package config loads the fieldforge.yaml project configuration:
// document store location, telemetry endpoint, and logging level.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "fieldforge.yaml"
	homeConfigDir     = ".fieldforge"
	homeConfigName    = "config.yaml"
)

// Config is the file shape of fieldforge.yaml.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig locates the document store.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// TelemetryConfig configures the OTLP exporter.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Store: StoreConfig{DSN: "fieldforge.db"},
		Log:   LogConfig{Level: "info"},
	}
}

// Discover resolves the config path with first-match semantics: the
// explicit path if given, then fieldforge.yaml in the working directory,
// then ~/.fieldforge/config.yaml. The bool reports whether a file was
// found.
func Discover(explicitPath string) (string, bool, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", false, fmt.Errorf("config file %s: %w", explicitPath, err)
		}
		return explicitPath, true, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	candidate := filepath.Join(cwd, projectConfigName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, nil
	}
	candidate = filepath.Join(homeDir, homeConfigDir, homeConfigName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	}
	return "", false, nil
}

// Load reads the configuration, falling back to defaults when no file is
// discovered.
func Load(explicitPath string) (Config, error) {
	cfg := Default()

	path, found, err := Discover(explicitPath)
	if err != nil {
		return cfg, err
	}
	if !found {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = Default().Store.DSN
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = Default().Log.Level
	}
	return cfg, nil
}

// SlogLevel converts the configured level name.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	switch c.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("unknown log level " + c.Level)
	}
}

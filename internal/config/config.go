// Package config loads resumedit settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	LocalDBPath  string `yaml:"local_db"`
	ServerDBPath string `yaml:"server_db"`
	// SyncIntervalSeconds is the period of the sync loop; 0 disables it.
	SyncIntervalSeconds int    `yaml:"sync_interval_seconds"`
	LogLevel            string `yaml:"log_level"`
	LogMerge            bool   `yaml:"log_merge"`
	UserID              string `yaml:"user_id"`
	RootKind            string `yaml:"root_kind"`
}

// DefaultDir is where the databases and config file live unless
// overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".resumedit"
	}
	return filepath.Join(home, ".resumedit")
}

// DefaultPath is the config file read by LoadConfig when
// RESUMEDIT_CONFIG is unset.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		LocalDBPath:         filepath.Join(dir, "local.db"),
		ServerDBPath:        filepath.Join(dir, "server.db"),
		SyncIntervalSeconds: 30,
		LogLevel:            "warn",
		RootKind:            string(domain.KindResume),
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// RESUMEDIT_* environment overrides. An empty path means DefaultPath, or
// RESUMEDIT_CONFIG when set. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("RESUMEDIT_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RESUMEDIT_LOCAL_DB"); v != "" {
		cfg.LocalDBPath = v
	}
	if v := os.Getenv("RESUMEDIT_SERVER_DB"); v != "" {
		cfg.ServerDBPath = v
	}
	if v := os.Getenv("RESUMEDIT_SYNC_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SyncIntervalSeconds = n
		}
	}
	if v := os.Getenv("RESUMEDIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RESUMEDIT_LOG_MERGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogMerge = b
		}
	}
	if v := os.Getenv("RESUMEDIT_USER"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("RESUMEDIT_ROOT_KIND"); v != "" {
		cfg.RootKind = v
	}
}

// Validate rejects settings the program cannot start with.
func (c Config) Validate() error {
	if c.SyncIntervalSeconds < 0 {
		return fmt.Errorf("sync_interval_seconds must be >= 0, got %d", c.SyncIntervalSeconds)
	}
	if _, err := domain.ParseKind(c.RootKind); err != nil {
		return fmt.Errorf("root_kind: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// Kind returns the configured root kind. Call Validate first.
func (c Config) Kind() domain.Kind {
	k, _ := domain.ParseKind(c.RootKind)
	return k
}

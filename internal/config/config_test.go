package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomhug/resumedit/internal/domain"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.SyncIntervalSeconds)
	assert.Equal(t, domain.KindResume, cfg.Kind())
	assert.Equal(t, "local.db", filepath.Base(cfg.LocalDBPath))
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
local_db: /tmp/a.db
sync_interval_seconds: 5
log_level: debug
root_kind: organization
user_id: 01HUSER
`)
	t.Setenv("RESUMEDIT_SYNC_INTERVAL", "0")
	t.Setenv("RESUMEDIT_LOG_MERGE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/a.db", cfg.LocalDBPath)
	assert.Equal(t, "server.db", filepath.Base(cfg.ServerDBPath), "unset keys keep defaults")
	assert.Equal(t, 0, cfg.SyncIntervalSeconds)
	assert.Equal(t, time.Duration(0), cfg.SyncInterval())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogMerge)
	assert.Equal(t, domain.KindOrganization, cfg.Kind())
	assert.Equal(t, "01HUSER", cfg.UserID)
}

func TestLoadConfig_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "sync_interval_seconds: 12\n")
	t.Setenv("RESUMEDIT_CONFIG", path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.SyncInterval())
}

func TestLoadConfig_InvalidEnvOverrideIgnored(t *testing.T) {
	t.Setenv("RESUMEDIT_SYNC_INTERVAL", "soon")
	t.Setenv("RESUMEDIT_LOG_MERGE", "maybe")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.SyncIntervalSeconds)
	assert.False(t, cfg.LogMerge)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "sync_interval_seconds: [1"},
		{"negative interval", "sync_interval_seconds: -1"},
		{"unknown kind", "root_kind: project"},
		{"unknown level", "log_level: loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger("chatty")
	assert.Error(t, err)
}

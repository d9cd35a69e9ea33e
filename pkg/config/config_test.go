package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, ":7777", cfg.Server.ListenAddr)
	assert.Equal(t, 0, cfg.Server.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5, cfg.Server.Pools.FixedWorkers)
	assert.Equal(t, 64, cfg.Server.Pools.FixedQueue)
	assert.Equal(t, 2, cfg.Server.Pools.ScanParallel)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  output: stderr
server:
  listen_addr: ":9000"
  max_connections: 32
  rate_limit: 10
  rate_burst: 20
  sync_interval: 15s
  pools:
    fixed_workers: 8
    scan_parallel: 4
store:
  type: badger
  badger:
    path: /tmp/groups
    sync_writes: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level must be uppercased")
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 32, cfg.Server.MaxConnections)
	assert.Equal(t, 10.0, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, 15*time.Second, cfg.Server.SyncInterval)
	assert.Equal(t, 8, cfg.Server.Pools.FixedWorkers)
	assert.Equal(t, 4, cfg.Server.Pools.ScanParallel)
	assert.Equal(t, "badger", cfg.Store.Type)
	assert.Equal(t, "/tmp/groups", cfg.Store.Badger["path"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "DefaultsAreValid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "UnknownLogLevel",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "VERBOSE" },
			wantErr: true,
		},
		{
			name:    "UnknownStoreType",
			mutate:  func(cfg *Config) { cfg.Store.Type = "redis" },
			wantErr: true,
		},
		{
			name:    "PostgresWithoutSection",
			mutate:  func(cfg *Config) { cfg.Store.Type = "postgres" },
			wantErr: true,
		},
		{
			name:    "BadgerWithoutSection",
			mutate:  func(cfg *Config) { cfg.Store.Type = "badger" },
			wantErr: true,
		},
		{
			name:    "BurstWithoutLimit",
			mutate:  func(cfg *Config) { cfg.Server.RateBurst = 5 },
			wantErr: true,
		},
		{
			name:    "ZeroFixedWorkers",
			mutate:  func(cfg *Config) { cfg.Server.Pools.FixedWorkers = 0 },
			wantErr: true,
		},
		{
			name:    "ZeroShutdownTimeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "MetricsPortOutOfRange",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GROUPSTORE_SERVER_LISTEN_ADDR", ":8123")
	t.Setenv("GROUPSTORE_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8123", cfg.Server.ListenAddr)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

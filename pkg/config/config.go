// Package config loads and validates server configuration.
//
// Sources, in order of precedence:
//  1. CLI flags (applied by the caller after Load)
//  2. Environment variables (GROUPSTORE_*)
//  3. Configuration file (YAML)
//  4. Default values
//
// Store configuration follows the factory pattern: the store.type field
// selects an implementation, and only the matching type-specific option
// map is decoded and used.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains transport and pool settings.
	Server ServerConfig `mapstructure:"server"`

	// Store selects and configures the persistence store.
	Store StoreConfig `mapstructure:"store"`

	// Metrics controls the optional Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to output.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is "stdout", "stderr" or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains transport-level settings.
type ServerConfig struct {
	// ListenAddr is the host:port the TCP listener binds.
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// MaxConnections caps concurrent clients. 0 = unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`

	// RateLimit bounds envelopes per second per connection. 0 = off.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`

	// SyncInterval is the period between "regular" full-collection
	// pushes. 0 disables periodic sync.
	SyncInterval time.Duration `mapstructure:"sync_interval" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Pools sizes the two execution pools.
	Pools PoolsConfig `mapstructure:"pools"`
}

// PoolsConfig sizes the execution pools.
type PoolsConfig struct {
	// FixedWorkers is the number of workers for cheap verbs.
	FixedWorkers int `mapstructure:"fixed_workers" validate:"required,gt=0"`

	// FixedQueue is the pending-task buffer of the fixed pool.
	FixedQueue int `mapstructure:"fixed_queue" validate:"gte=0"`

	// ScanParallel bounds concurrent scan/bulk tasks.
	ScanParallel int `mapstructure:"scan_parallel" validate:"required,gt=0"`
}

// StoreConfig selects the persistence store implementation. Only the
// section matching Type is used.
type StoreConfig struct {
	// Type is one of: postgres, badger, memory.
	Type string `mapstructure:"type" validate:"required,oneof=postgres badger memory"`

	Postgres map[string]any `mapstructure:"postgres"`
	Badger   map[string]any `mapstructure:"badger"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Load reads configuration from the optional file path, the
// environment, and the defaults, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("GROUPSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers the lowest-precedence configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("server.listen_addr", ":7777")
	v.SetDefault("server.max_connections", 0)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 5*time.Minute)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)
	v.SetDefault("server.sync_interval", 0)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// The fixed pool mirrors the historical sizing: five workers for
	// cheap verbs, two parallel slots for scans.
	v.SetDefault("server.pools.fixed_workers", 5)
	v.SetDefault("server.pools.fixed_queue", 64)
	v.SetDefault("server.pools.scan_parallel", 2)

	v.SetDefault("store.type", "memory")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

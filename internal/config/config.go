package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Coordinator holds every recognized coordinator option.
type Coordinator struct {
	// ListenAddr is the address the RPC facade binds to, e.g. ":8080".
	ListenAddr string `mapstructure:"listen_addr"`

	// HeartbeatCheckInterval is both the sweep period and the per-sweep
	// freshness threshold.
	HeartbeatCheckInterval time.Duration `mapstructure:"heartbeat_check_interval"`

	// VirtualNodesPerServer is V in the ring.
	VirtualNodesPerServer int `mapstructure:"virtual_nodes_per_server"`

	// DefaultReplicaCount is used by write_file when the caller omits an
	// explicit replica count.
	DefaultReplicaCount int `mapstructure:"default_replica_count"`
}

// Defaults returns the compiled-in option values, applied before any
// config file or environment variable is consulted.
func Defaults() Coordinator {
	return Coordinator{
		ListenAddr:             ":8080",
		HeartbeatCheckInterval: 10 * time.Second,
		VirtualNodesPerServer:  20,
		DefaultReplicaCount:    3,
	}
}

// Load builds a Viper instance seeded with Defaults, optionally merges in
// path (if non-empty), then layers MGFS_-prefixed environment variables
// on top, and decodes the result into a Coordinator.
func Load(path string) (Coordinator, error) {
	v := viper.New()
	v.SetEnvPrefix("mgfs")
	v.AutomaticEnv()

	defaults := Defaults()
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("heartbeat_check_interval", defaults.HeartbeatCheckInterval)
	v.SetDefault("virtual_nodes_per_server", defaults.VirtualNodesPerServer)
	v.SetDefault("default_replica_count", defaults.DefaultReplicaCount)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Coordinator{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Coordinator
	if err := v.Unmarshal(&cfg); err != nil {
		return Coordinator{}, fmt.Errorf("config: decoding: %w", err)
	}
	return cfg, nil
}

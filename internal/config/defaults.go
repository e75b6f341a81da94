package config

import "github.com/KilimcininKorOglu/bnode/internal/storage/bnode"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			MaxNodeSize: bnode.DefaultMaxNodeSize,
		},
		Store: StoreConfig{
			Backend:   BackendFile,
			Path:      "bnode-data",
			Sync:      true,
			CacheSize: 1 << 20,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

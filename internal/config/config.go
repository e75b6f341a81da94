// Package config provides configuration parsing and validation for the bnode tools.
package config

import (
	"github.com/KilimcininKorOglu/bnode/internal/logging"
	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Config holds the complete configuration.
type Config struct {
	Node    NodeConfig  `yaml:"node"`
	Store   StoreConfig `yaml:"store"`
	Logging LogConfig   `yaml:"logging"`
}

// NodeConfig holds settings applied to every node the tools build.
type NodeConfig struct {
	// MaxNodeSize is the serialized size budget past which AddKv fails.
	MaxNodeSize int `yaml:"maxNodeSize"`
}

// StoreConfig selects and configures the node store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Sync    bool   `yaml:"sync"`

	// CacheSize bounds the file backend's image cache in bytes. Zero disables it.
	CacheSize int `yaml:"cacheSize"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Options returns the node options described by c.
func (c NodeConfig) Options() []bnode.Option {
	return []bnode.Option{bnode.WithMaxNodeSize(c.MaxNodeSize)}
}

// LoggerConfig converts c into a logging.Config.
func (c LogConfig) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  c.Level,
		Format: c.Format,
		Output: c.Output,
	}
}

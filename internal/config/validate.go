package config

import (
	"fmt"
	"math"

	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateNodeConfig(&config.Node)...)
	errs = append(errs, validateStoreConfig(&config.Store)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

func validateNodeConfig(config *NodeConfig) []error {
	var errs []error

	if config.MaxNodeSize < bnode.HeaderSize {
		errs = append(errs, ValidationError{
			Field:   "node.maxNodeSize",
			Message: fmt.Sprintf("must be at least %d", bnode.HeaderSize),
		})
	} else if uint64(config.MaxNodeSize) > math.MaxUint32 {
		errs = append(errs, ValidationError{
			Field:   "node.maxNodeSize",
			Message: "must fit in 32 bits",
		})
	}

	return errs
}

func validateStoreConfig(config *StoreConfig) []error {
	var errs []error

	switch config.Backend {
	case BackendFile, BackendPebble:
	default:
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (must be %s or %s)", config.Backend, BackendFile, BackendPebble),
		})
	}

	if config.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "store.path",
			Message: "path is required",
		})
	}

	if config.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "store.cacheSize",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateLogConfig(config *LogConfig) []error {
	var errs []error

	switch config.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q", config.Level),
		})
	}

	switch config.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q", config.Format),
		})
	}

	return errs
}

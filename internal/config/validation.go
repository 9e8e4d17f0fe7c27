// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"

	"maptile-reader/pkg/container"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateReader(&config.Reader); err != nil {
		return fmt.Errorf("reader configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateSimulate(&config.Simulate); err != nil {
		return fmt.Errorf("simulate configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	return nil
}

// validateReader validates read manager configuration parameters
func validateReader(config *ReaderConfig) error {
	if config.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative")
	}

	if config.Concurrency > 256 {
		return fmt.Errorf("concurrency must not exceed 256")
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"geojson", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// validateSimulate validates synthetic container parameters
func validateSimulate(config *SimulateConfig) error {
	if config.Features <= 0 {
		return fmt.Errorf("features must be positive")
	}

	if config.CoordBits < 8 || config.CoordBits > 32 {
		return fmt.Errorf("coord_bits must be between 8 and 32")
	}

	if len(config.Scales) == 0 || len(config.Scales) > container.MaxScalesCount {
		return fmt.Errorf("scales must carry between 1 and %d levels", container.MaxScalesCount)
	}

	for i := 1; i < len(config.Scales); i++ {
		if config.Scales[i] <= config.Scales[i-1] {
			return fmt.Errorf("scales must be strictly increasing, got %v", config.Scales)
		}
	}

	if config.Types <= 0 {
		return fmt.Errorf("types must be positive")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, value string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}

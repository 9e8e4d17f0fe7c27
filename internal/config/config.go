// internal/config/config.go - Configuration management
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Reader   ReaderConfig   `mapstructure:"reader"`
	Output   OutputConfig   `mapstructure:"output"`
	Simulate SimulateConfig `mapstructure:"simulate"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ReaderConfig contains read manager configuration
type ReaderConfig struct {
	// Concurrency is the worker pool size; zero selects the default of
	// max(NumCPU-2, 1).
	Concurrency int `mapstructure:"concurrency"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Pretty bool   `mapstructure:"pretty"`
}

// SimulateConfig contains synthetic container parameters for the simulate
// command
type SimulateConfig struct {
	Seed      int64 `mapstructure:"seed"`
	Features  int   `mapstructure:"features"`
	CoordBits uint  `mapstructure:"coord_bits"`
	Scales    []int `mapstructure:"scales"`
	Types     int   `mapstructure:"types"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from viper's merged sources
func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures default values for all configuration options
func setDefaults() {
	viper.SetDefault("reader.concurrency", 0)

	viper.SetDefault("output.format", "geojson")
	viper.SetDefault("output.pretty", false)

	viper.SetDefault("simulate.seed", 1)
	viper.SetDefault("simulate.features", 500)
	viper.SetDefault("simulate.coord_bits", 30)
	viper.SetDefault("simulate.scales", []int{10, 13, 16, 19})
	viper.SetDefault("simulate.types", 64)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

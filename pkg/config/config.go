// Package config provides configuration loading and management for
// scrollink. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Volume parameters
	Volume struct {
		// SlicesDir is the directory containing the 2D slice images
		SlicesDir string `yaml:"slicesDir"`

		// Threshold is the intensity threshold separating fragment
		// material from background, on the 0-1 intensity scale
		Threshold float64 `yaml:"threshold"`
	} `yaml:"volume"`

	// Surface detection parameters
	Surface struct {
		// FragmentBuffer is the neighborhood radius used to verify
		// that a surface point is surrounded by fragment material
		FragmentBuffer int `yaml:"fragmentBuffer"`
	} `yaml:"surface"`

	// Feature extraction parameters
	Features struct {
		// CutIn is the depth-window length into the fragment
		CutIn int `yaml:"cutIn"`

		// CutBack is how far behind the surface the window starts
		CutBack int `yaml:"cutBack"`

		// NeighborRadius is the spatial radius for neighborhood
		// aggregates
		NeighborRadius int `yaml:"neighborRadius"`

		// CacheDir is where computed feature images are memoized
		CacheDir string `yaml:"cacheDir"`
	} `yaml:"features"`

	// Training parameters
	Training struct {
		// Style selects the index-pool partition: drop, rhalf or lhalf
		Style string `yaml:"style"`

		// Dropout is the fraction of the pool kept by the drop style
		Dropout float64 `yaml:"dropout"`

		// BatchSize is the number of examples per training batch
		BatchSize int `yaml:"batchSize"`

		// Seed seeds the pool shuffling and flip augmentation
		Seed int64 `yaml:"seed"`
	} `yaml:"training"`

	// Output parameters
	Output struct {
		// FeaturesDir is where feature-channel images are written
		FeaturesDir string `yaml:"featuresDir"`

		// ExportVolume enables writing the loaded volume back out as
		// a numbered slice stack
		ExportVolume bool `yaml:"exportVolume"`

		// VolumeDir is where the exported slice stack is written
		VolumeDir string `yaml:"volumeDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default volume parameters. The threshold matches a mid-gray
	// crossing on 16-bit scans scaled to 0-1.
	cfg.Volume.Threshold = 0.32

	// Set default surface parameters
	cfg.Surface.FragmentBuffer = 4

	// Set default feature parameters
	cfg.Features.CutIn = 16
	cfg.Features.CutBack = 8
	cfg.Features.NeighborRadius = 2
	cfg.Features.CacheDir = "feat_cache"

	// Set default training parameters
	cfg.Training.Style = "drop"
	cfg.Training.Dropout = 0.6
	cfg.Training.BatchSize = 64
	cfg.Training.Seed = 1

	// Set default output parameters
	cfg.Output.FeaturesDir = "feature_images"
	cfg.Output.ExportVolume = false
	cfg.Output.VolumeDir = "volume_stack"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

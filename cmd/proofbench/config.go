// config.go - Configuration management for the proof benchmark
package main

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
)

// Config represents the benchmark configuration
type Config struct {
	// Workload settings
	NumProofs int `json:"num_proofs"`
	RangeBits int `json:"range_bits"`
	Rounds    int `json:"rounds"`

	// Backend settings
	ParallelWorkers           int  `json:"parallel_workers"`
	UseAccelerated            bool `json:"use_accelerated"`
	AcceleratedBatchThreshold int  `json:"accelerated_batch_threshold"`

	// Batch limits
	MaxProofsPerBatch  int    `json:"max_proofs_per_batch"`
	MaxComputeUnits    uint64 `json:"max_compute_units"`
	MaxTransactionSize int    `json:"max_transaction_size"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		NumProofs:                 32,
		RangeBits:                 64,
		Rounds:                    3,
		ParallelWorkers:           4,
		UseAccelerated:            true,
		AcceleratedBatchThreshold: 4,
		MaxProofsPerBatch:         16,
		MaxComputeUnits:           1_400_000,
		MaxTransactionSize:        1232,
		LogLevel:                  "info",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NumProofs <= 0 {
		return fmt.Errorf("num_proofs must be positive")
	}
	if c.RangeBits <= 0 || c.RangeBits > 64 || bits.OnesCount(uint(c.RangeBits)) != 1 {
		return fmt.Errorf("range_bits must be a power of two in [1, 64]")
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive")
	}
	if c.ParallelWorkers <= 0 {
		return fmt.Errorf("parallel_workers must be positive")
	}
	if c.MaxProofsPerBatch <= 0 {
		return fmt.Errorf("max_proofs_per_batch must be positive")
	}
	if c.MaxComputeUnits == 0 {
		return fmt.Errorf("max_compute_units must be positive")
	}
	if c.MaxTransactionSize <= 0 {
		return fmt.Errorf("max_transaction_size must be positive")
	}
	return nil
}

// Package config loads kernel configuration from YAML. Every tunable has a
// default so the kernel can boot without a config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the kernel tunables.
type Config struct {
	// TimeSlice is the number of timer ticks a task runs before preemption.
	TimeSlice int `yaml:"timeSlice"`
	// MaxTasks caps the task table.
	MaxTasks int `yaml:"maxTasks"`
	// MemoryPages is the physical page quota for all address spaces.
	MemoryPages int `yaml:"memoryPages"`
	// ImageRoot is the base URL executable paths are resolved against.
	ImageRoot string `yaml:"imageRoot"`
	// LogLevel selects the logging backend level (DEBUG, INFO, ...).
	LogLevel string `yaml:"logLevel"`
	// TraceOutput is the file traces are written to; empty disables tracing.
	TraceOutput string `yaml:"traceOutput"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		TimeSlice:   10,
		MaxTasks:    64,
		MemoryPages: 4096,
		ImageRoot:   "file:///",
		LogLevel:    "INFO",
	}
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tunables for values the kernel cannot run with.
func (c *Config) Validate() error {
	if c.TimeSlice <= 0 {
		return fmt.Errorf("config: timeSlice must be positive, got %d", c.TimeSlice)
	}
	if c.MaxTasks <= 1 {
		return fmt.Errorf("config: maxTasks must allow more than the init task, got %d", c.MaxTasks)
	}
	if c.MemoryPages <= 0 {
		return fmt.Errorf("config: memoryPages must be positive, got %d", c.MemoryPages)
	}
	return nil
}

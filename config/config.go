// Package config loads the engine's runtime settings from a YAML file,
// the way the teacher's own server config is loaded, falling back to
// spec.md's hardcoded defaults when no file is given.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the handful of tunables the engine exposes. Every field
// defaults to the constant the original hardcoded, so an empty/missing
// config file reproduces the original's fixed behavior exactly.
type Config struct {
	// CheckpointInterval is how often the BarrierService ticks a new
	// epoch for running streaming jobs.
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
	// ProcessingWindowSize is loaded and defaulted here but not read by
	// the engine: ValueConnector and the hash aggregate batch by their
	// own fixed 1024-row constants.
	ProcessingWindowSize int `yaml:"processing_window_size"`
	// DefaultSchemaName is loaded and defaulted here but not read by the
	// engine: the catalog always pre-creates catalog.DefaultSchemaName.
	DefaultSchemaName string `yaml:"default_schema_name"`
	// StatePath names a BoltState database file. Nothing in the engine
	// opens a BoltState, so the engine does not read it.
	StatePath string `yaml:"state_path"`
}

// Default returns the engine's built-in configuration, matching every
// constant spec.md and the original hardcode (1s checkpoint tick,
// PROCESSING_WINDOW_SIZE=1024, schema "postgres").
func Default() Config {
	return Config{
		CheckpointInterval:   time.Second,
		ProcessingWindowSize: 1024,
		DefaultSchemaName:    "postgres",
		StatePath:            "streamql.db",
	}
}

// Load reads a YAML config file at path, overlaying it onto Default()
// so an omitted field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

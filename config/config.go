// Package config loads run configuration from JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidJSON is returned when the configuration file exists but does not
// parse.
var ErrInvalidJSON = errors.New("configuration file is not valid JSON")

// Config is the run configuration an example harness or embedding
// application feeds to the driver loop.
type Config struct {
	// RunID keys persisted checkpoints and emitted events. Empty lets the
	// driver mint one.
	RunID string `json:"run_id,omitempty"`

	// MaxSteps bounds the number of supersteps. Zero keeps the driver
	// default.
	MaxSteps int `json:"max_steps,omitempty"`

	// MaxConcurrent bounds concurrent task bodies within a superstep. Zero
	// keeps the driver default.
	MaxConcurrent int `json:"max_concurrent,omitempty"`

	// InterruptNodes lists the nodes to halt before, "*" for all.
	InterruptNodes []string `json:"interrupt_nodes,omitempty"`

	// LogLevel sets the engine log level: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// CheckpointPath points the SQLite saver at a database file. Empty
	// disables persistence unless the application wires its own saver.
	CheckpointPath string `json:"checkpoint_path,omitempty"`

	// MetricsAddr is the listen address for the Prometheus scrape endpoint.
	// Empty disables metrics exposure.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// Load reads the configuration at path. A missing file and invalid JSON are
// reported as distinct errors so callers can fall back on defaults for the
// former and fail loudly on the latter.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("configuration file %q not found: %w", path, err)
		}
		return Config{}, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %q: %v", ErrInvalidJSON, path, err)
	}
	return cfg, nil
}

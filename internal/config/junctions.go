// Package config loads the junction and monitor configuration file
// consumed at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flextraff/atcs/internal/timing"
)

// DefaultConfigPath is the canonical configuration shipped with the
// service; production deployments point -config at their own file.
const DefaultConfigPath = "config/junctions.defaults.json"

// MonitorSettings configures the connectivity monitor shared defaults.
// Zero values fall back to the monitor package defaults.
type MonitorSettings struct {
	CheckIntervalSeconds int      `json:"check_interval_seconds,omitempty"`
	ProbeTimeoutSeconds  int      `json:"probe_timeout_seconds,omitempty"`
	FailureThreshold     int      `json:"failure_threshold,omitempty"`
	SuccessThreshold     int      `json:"success_threshold,omitempty"`
	ProbeHosts           []string `json:"probe_hosts,omitempty"`
	BackendHealthURL     string   `json:"backend_health_url,omitempty"`
}

// CheckInterval returns the probe interval as a duration.
func (m MonitorSettings) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalSeconds) * time.Second
}

// ProbeTimeout returns the per-tick probe timeout as a duration.
func (m MonitorSettings) ProbeTimeout() time.Duration {
	return time.Duration(m.ProbeTimeoutSeconds) * time.Second
}

// JunctionSpec is one junction's configuration entry. Timing fields
// left at zero take the standard defaults.
type JunctionSpec struct {
	ID            int64   `json:"junction_id"`
	Name          string  `json:"name"`
	Location      string  `json:"location,omitempty"`
	LaneCount     int     `json:"lane_count,omitempty"`
	MinGreen      float64 `json:"min_green,omitempty"`
	MaxGreen      float64 `json:"max_green,omitempty"`
	BaseCycleTime float64 `json:"base_cycle_time,omitempty"`
	MaxCycleTime  float64 `json:"max_cycle_time,omitempty"`
	YellowTime    float64 `json:"yellow_time,omitempty"`
}

// TimingConfig converts the entry into the engine's config value.
func (s JunctionSpec) TimingConfig() timing.JunctionConfig {
	cfg := timing.DefaultConfig()
	if s.LaneCount > 0 {
		cfg.LaneCount = s.LaneCount
	}
	if s.MinGreen > 0 {
		cfg.MinGreen = s.MinGreen
	}
	if s.MaxGreen > 0 {
		cfg.MaxGreen = s.MaxGreen
	}
	if s.BaseCycleTime > 0 {
		cfg.BaseCycleTime = s.BaseCycleTime
	}
	if s.MaxCycleTime > 0 {
		cfg.MaxCycleTime = s.MaxCycleTime
	}
	if s.YellowTime > 0 {
		cfg.YellowTime = s.YellowTime
	}
	return cfg
}

// Config is the root configuration document.
type Config struct {
	Junctions []JunctionSpec  `json:"junctions"`
	Monitor   MonitorSettings `json:"monitor"`
}

// Load reads and validates a configuration file. The file must have a
// .json extension and stay under the size cap; fields omitted from the
// JSON keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the whole document: at least one junction, unique
// positive IDs, and per-junction timing invariants.
func (c *Config) Validate() error {
	if len(c.Junctions) == 0 {
		return fmt.Errorf("at least one junction must be configured")
	}
	seen := make(map[int64]bool, len(c.Junctions))
	for _, j := range c.Junctions {
		if j.ID < 1 {
			return fmt.Errorf("junction %q: junction_id must be positive", j.Name)
		}
		if seen[j.ID] {
			return fmt.Errorf("duplicate junction_id %d", j.ID)
		}
		seen[j.ID] = true
		if j.Name == "" {
			return fmt.Errorf("junction %d: name must not be empty", j.ID)
		}
		if err := j.TimingConfig().Validate(); err != nil {
			return fmt.Errorf("junction %d: %w", j.ID, err)
		}
	}
	if c.Monitor.CheckIntervalSeconds < 0 || c.Monitor.ProbeTimeoutSeconds < 0 {
		return fmt.Errorf("monitor intervals must not be negative")
	}
	return nil
}

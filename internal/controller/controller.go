// Package controller orchestrates the connectivity monitor, the
// allocation engine, and the fallback policy behind one operation:
// compute the current timing plan for a junction.
package controller

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/flextraff/atcs/internal/connectivity"
	"github.com/flextraff/atcs/internal/timing"
)

// Controller selects between adaptive and fallback allocation for one
// junction. The selection is a pure function of the monitor snapshot
// and input validity; the controller itself keeps no other state
// beyond the atomically swappable config.
type Controller struct {
	junctionID int64
	cfg        atomic.Pointer[timing.JunctionConfig]
	monitor    *connectivity.Monitor
	logger     *log.Logger
}

// New creates a Controller. The config is validated here so an invalid
// setup fails at startup rather than degrading silently forever.
func New(junctionID int64, cfg timing.JunctionConfig, monitor *connectivity.Monitor, logger *log.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("junction %d: %w", junctionID, err)
	}
	if monitor == nil {
		return nil, fmt.Errorf("junction %d: controller requires a connectivity monitor", junctionID)
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		junctionID: junctionID,
		monitor:    monitor,
		logger:     logger,
	}
	c.cfg.Store(&cfg)

	// Surface an infeasible green budget once, at setup. The runtime
	// path degrades to fallback instead of failing.
	if _, err := timing.Compute(timing.Observations(make([]int, cfg.LaneCount)), cfg); err != nil {
		logger.Printf("junction %d: configuration cannot produce adaptive plans, fallback will be served: %v", junctionID, err)
	}
	return c, nil
}

// JunctionID returns the junction this controller serves.
func (c *Controller) JunctionID() int64 {
	return c.junctionID
}

// Config returns the current configuration value.
func (c *Controller) Config() timing.JunctionConfig {
	return *c.cfg.Load()
}

// Reconfigure atomically replaces the junction configuration. An
// in-flight computation sees either the old or the new value, never a
// mix.
func (c *Controller) Reconfigure(cfg timing.JunctionConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("junction %d: %w", c.junctionID, err)
	}
	c.cfg.Store(&cfg)
	c.logger.Printf("junction %d: reconfigured (lanes=%d cycle=%gs)", c.junctionID, cfg.LaneCount, cfg.BaseCycleTime)
	return nil
}

// ComputePlan returns the current timing plan. It never fails: offline
// connectivity, malformed observations, and infeasible budgets all
// degrade to the fallback plan, tagged accordingly, because a data
// fault must never surface as an outage on a safety-relevant system.
func (c *Controller) ComputePlan(observations []timing.LaneObservation) timing.TimingPlan {
	cfg := *c.cfg.Load()

	// Offline: ignore observations entirely. Detection data without a
	// trusted link may be stale or corrupt.
	if !c.monitor.Snapshot().Online {
		return timing.Fallback(cfg)
	}

	plan, err := timing.Compute(observations, cfg)
	if err != nil {
		c.logger.Printf("junction %d: adaptive computation failed, serving fallback: %v", c.junctionID, err)
		return timing.Fallback(cfg)
	}
	return plan
}

// ConnectivitySnapshot exposes the monitor state for health reporting.
func (c *Controller) ConnectivitySnapshot() connectivity.State {
	return c.monitor.Snapshot()
}

// Package timing implements the signal timing core: the adaptive
// allocation engine, the fixed fallback policy, and the configuration
// and plan types shared by both.
package timing

import "fmt"

// Default timing bounds, matching the deployed junction controllers.
const (
	DefaultLaneCount     = 4
	DefaultMinGreen      = 15.0
	DefaultMaxGreen      = 90.0
	DefaultBaseCycleTime = 120.0
	DefaultMaxCycleTime  = 180.0
	DefaultYellowTime    = 5.0
)

// JunctionConfig holds the timing constraints for a single junction.
// All durations are in seconds. A config is validated once at
// construction and treated as immutable afterwards; reconfiguration
// swaps in a whole new value.
type JunctionConfig struct {
	LaneCount     int     `json:"lane_count"`
	MinGreen      float64 `json:"min_green"`
	MaxGreen      float64 `json:"max_green"`
	BaseCycleTime float64 `json:"base_cycle_time"`
	// MaxCycleTime caps the demand-based cycle extension. Set equal to
	// BaseCycleTime to disable extension.
	MaxCycleTime float64 `json:"max_cycle_time"`
	YellowTime   float64 `json:"yellow_time"`
}

// DefaultConfig returns the standard four-lane junction configuration.
func DefaultConfig() JunctionConfig {
	return JunctionConfig{
		LaneCount:     DefaultLaneCount,
		MinGreen:      DefaultMinGreen,
		MaxGreen:      DefaultMaxGreen,
		BaseCycleTime: DefaultBaseCycleTime,
		MaxCycleTime:  DefaultMaxCycleTime,
		YellowTime:    DefaultYellowTime,
	}
}

// Validate checks the structural invariants of the configuration.
// A config that passes Validate may still be infeasible for allocation
// if the yellow phases consume the whole cycle; Compute reports that as
// an InfeasibleConfigError so it can surface as a setup diagnostic.
func (c JunctionConfig) Validate() error {
	if c.LaneCount < 1 {
		return fmt.Errorf("lane_count must be at least 1, got %d", c.LaneCount)
	}
	if c.MinGreen <= 0 {
		return fmt.Errorf("min_green must be positive, got %g", c.MinGreen)
	}
	if c.MaxGreen <= c.MinGreen {
		return fmt.Errorf("max_green (%g) must exceed min_green (%g)", c.MaxGreen, c.MinGreen)
	}
	if c.BaseCycleTime <= 0 {
		return fmt.Errorf("base_cycle_time must be positive, got %g", c.BaseCycleTime)
	}
	if c.MaxCycleTime < c.BaseCycleTime {
		return fmt.Errorf("max_cycle_time (%g) must be at least base_cycle_time (%g)", c.MaxCycleTime, c.BaseCycleTime)
	}
	if c.YellowTime < 0 {
		return fmt.Errorf("yellow_time must not be negative, got %g", c.YellowTime)
	}
	return nil
}

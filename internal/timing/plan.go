package timing

import (
	"math"
	"time"
)

// Mode tags how a TimingPlan was produced.
type Mode string

const (
	// ModeAdaptive means the plan was computed from live vehicle counts.
	ModeAdaptive Mode = "adaptive"
	// ModeFallback means the plan is the fixed safe allocation, used
	// when connectivity or input data cannot be trusted.
	ModeFallback Mode = "fallback"
)

// LaneObservation is one lane's live vehicle count, supplied fresh on
// every computation and not retained.
type LaneObservation struct {
	LaneIndex    int `json:"lane_index"`
	VehicleCount int `json:"vehicle_count"`
}

// Observations builds an observation slice from a plain count vector,
// the shape most callers (API requests, windowed DB counts) start from.
func Observations(counts []int) []LaneObservation {
	obs := make([]LaneObservation, len(counts))
	for i, c := range counts {
		obs[i] = LaneObservation{LaneIndex: i, VehicleCount: c}
	}
	return obs
}

// TimingPlan is a computed signal cycle: one green phase per lane plus
// the shared yellow time. Green times are kept at full float precision
// internally; use Rounded for any serialized or displayed form.
type TimingPlan struct {
	GreenTimes     []float64 `json:"green_times"`
	YellowTime     float64   `json:"yellow_time"`
	TotalCycleTime float64   `json:"total_cycle_time"`
	Mode           Mode      `json:"mode"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Rounded returns a presentation copy of the plan with all durations
// rounded to one decimal place. Rounding happens only here, never
// mid-computation, so redistribution error does not compound.
func (p TimingPlan) Rounded() TimingPlan {
	out := p
	out.GreenTimes = make([]float64, len(p.GreenTimes))
	for i, g := range p.GreenTimes {
		out.GreenTimes[i] = round1(g)
	}
	out.YellowTime = round1(p.YellowTime)
	out.TotalCycleTime = round1(p.TotalCycleTime)
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

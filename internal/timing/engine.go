package timing

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Demand-based cycle extension: for every started block of
// extensionStep vehicles over extensionFreeVehicles, the cycle target
// grows by extensionStep seconds, capped at MaxCycleTime.
const (
	extensionFreeVehicles = 100
	extensionStep         = 10
)

// Compute produces an adaptive timing plan for one junction from live
// per-lane vehicle counts. It is deterministic and has no side effects:
// identical inputs yield identical green times (only ComputedAt
// differs). It fails only on malformed observations or an infeasible
// configuration; the mode controller converts both failures into a
// fallback plan.
//
// The allocation is max-min fair under hard per-lane bounds: raw
// proportional shares are clamped to [MinGreen, MaxGreen] and the
// surplus or deficit is redistributed among the unclamped lanes,
// iterating until no lane changes its clamped status. Bounds are hard
// constraints; the cycle target is only a soft goal, so the final total
// may differ from it under bound pressure.
func Compute(observations []LaneObservation, cfg JunctionConfig) (TimingPlan, error) {
	counts, err := validateObservations(observations, cfg)
	if err != nil {
		return TimingPlan{}, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	target := cycleTarget(total, cfg)
	budget := target - float64(cfg.LaneCount)*cfg.YellowTime
	if budget <= 0 {
		return TimingPlan{}, &InfeasibleConfigError{Budget: budget}
	}

	green := allocate(counts, budget, cfg)

	return TimingPlan{
		GreenTimes:     green,
		YellowTime:     cfg.YellowTime,
		TotalCycleTime: floats.Sum(green) + float64(cfg.LaneCount)*cfg.YellowTime,
		Mode:           ModeAdaptive,
		ComputedAt:     time.Now().UTC(),
	}, nil
}

func validateObservations(observations []LaneObservation, cfg JunctionConfig) ([]int, error) {
	if len(observations) != cfg.LaneCount {
		return nil, &InvalidInputError{
			Reason: fmt.Sprintf("expected %d lanes, got %d", cfg.LaneCount, len(observations)),
		}
	}
	counts := make([]int, len(observations))
	for i, o := range observations {
		if o.VehicleCount < 0 {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("lane %d has negative vehicle count %d", o.LaneIndex, o.VehicleCount),
			}
		}
		counts[i] = o.VehicleCount
	}
	return counts, nil
}

// cycleTarget returns the cycle-time goal for the given total demand.
// Up to extensionFreeVehicles the base cycle is used; beyond that the
// cycle stretches in extensionStep-second increments, capped at
// MaxCycleTime.
func cycleTarget(totalVehicles int, cfg JunctionConfig) float64 {
	if totalVehicles <= extensionFreeVehicles || cfg.MaxCycleTime <= cfg.BaseCycleTime {
		return cfg.BaseCycleTime
	}
	excess := totalVehicles - extensionFreeVehicles
	increments := (excess + extensionStep - 1) / extensionStep
	return math.Min(cfg.BaseCycleTime+float64(increments*extensionStep), cfg.MaxCycleTime)
}

// allocate distributes budget seconds of green time across lanes in
// proportion to their vehicle counts, clamping each lane to
// [MinGreen, MaxGreen]. Clamping is simultaneous within an iteration:
// all violating lanes found in one pass are pinned together before
// shares are recomputed, so the result is independent of lane order.
// Each iteration pins at least one lane, so the loop terminates within
// len(counts) iterations.
func allocate(counts []int, budget float64, cfg JunctionConfig) []float64 {
	n := len(counts)
	green := make([]float64, n)

	// No demand anywhere: equal split, floored at MinGreen and capped
	// at MaxGreen, to avoid a division-by-zero bias toward any lane.
	if intSum(counts) == 0 {
		share := clamp(math.Max(cfg.MinGreen, budget/float64(n)), cfg.MinGreen, cfg.MaxGreen)
		for i := range green {
			green[i] = share
		}
		return green
	}

	pinned := make([]bool, n)
	raw := make([]float64, n)

	for iter := 0; iter < n; iter++ {
		var pinnedTime float64
		var openCount float64
		openLanes := 0
		for i := range counts {
			if pinned[i] {
				pinnedTime += green[i]
			} else {
				openCount += float64(counts[i])
				openLanes++
			}
		}
		if openLanes == 0 {
			break
		}

		remaining := budget - pinnedTime

		// All still-open lanes have zero demand (the demand lanes were
		// pinned): split whatever remains equally among them.
		if openCount == 0 {
			share := clamp(remaining/float64(openLanes), cfg.MinGreen, cfg.MaxGreen)
			for i := range counts {
				if !pinned[i] {
					green[i] = share
				}
			}
			break
		}

		changed := false
		for i := range counts {
			if pinned[i] {
				continue
			}
			raw[i] = remaining * float64(counts[i]) / openCount
		}
		for i := range counts {
			if pinned[i] {
				continue
			}
			switch {
			case raw[i] < cfg.MinGreen:
				green[i] = cfg.MinGreen
				pinned[i] = true
				changed = true
			case raw[i] > cfg.MaxGreen:
				green[i] = cfg.MaxGreen
				pinned[i] = true
				changed = true
			default:
				green[i] = raw[i]
			}
		}
		if !changed {
			break
		}
	}

	return green
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func intSum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

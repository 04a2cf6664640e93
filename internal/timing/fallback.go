package timing

import "time"

// Fallback returns the fixed safe allocation: every lane gets MaxGreen.
// Maximum allowed time per lane is the only value guaranteed safe
// without live demand data, since it lets every approach clear fully at
// the cost of cycle efficiency. Fallback never consults vehicle data
// and cannot fail for any valid config.
func Fallback(cfg JunctionConfig) TimingPlan {
	green := make([]float64, cfg.LaneCount)
	for i := range green {
		green[i] = cfg.MaxGreen
	}
	return TimingPlan{
		GreenTimes:     green,
		YellowTime:     cfg.YellowTime,
		TotalCycleTime: float64(cfg.LaneCount) * (cfg.MaxGreen + cfg.YellowTime),
		Mode:           ModeFallback,
		ComputedAt:     time.Now().UTC(),
	}
}

package timing

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testConfig() JunctionConfig {
	return JunctionConfig{
		LaneCount:     4,
		MinGreen:      15,
		MaxGreen:      90,
		BaseCycleTime: 120,
		MaxCycleTime:  180,
		YellowTime:    5,
	}
}

func mustCompute(t *testing.T, counts []int, cfg JunctionConfig) TimingPlan {
	t.Helper()
	plan, err := Compute(Observations(counts), cfg)
	if err != nil {
		t.Fatalf("Compute(%v) failed: %v", counts, err)
	}
	return plan
}

func TestComputeProportionalWithinBounds(t *testing.T) {
	cfg := testConfig()
	plan := mustCompute(t, []int{10, 8, 12, 6}, cfg)

	// budget = 120 - 4*5 = 100, total = 36: raw shares all fit.
	want := []float64{
		100.0 * 10 / 36,
		100.0 * 8 / 36,
		100.0 * 12 / 36,
		100.0 * 6 / 36,
	}
	if diff := cmp.Diff(want, plan.GreenTimes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("green times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(120.0, plan.TotalCycleTime, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("total cycle time mismatch (-want +got):\n%s", diff)
	}
	if plan.Mode != ModeAdaptive {
		t.Errorf("expected adaptive mode, got %q", plan.Mode)
	}
}

func TestComputeZeroDemandEqualSplit(t *testing.T) {
	cfg := testConfig()
	plan := mustCompute(t, []int{0, 0, 0, 0}, cfg)

	// budget/4 = 25 is above MinGreen, so every lane gets 25.
	for i, g := range plan.GreenTimes {
		if g != 25 {
			t.Errorf("lane %d: expected 25s, got %g", i, g)
		}
	}
}

func TestComputeZeroDemandTightBudgetFloorsAtMinGreen(t *testing.T) {
	cfg := testConfig()
	cfg.BaseCycleTime = 70
	cfg.MaxCycleTime = 70
	plan := mustCompute(t, []int{0, 0, 0, 0}, cfg)

	// budget/4 = 12.5 falls below MinGreen; the floor wins even though
	// the total then overshoots the cycle target.
	for i, g := range plan.GreenTimes {
		if g != cfg.MinGreen {
			t.Errorf("lane %d: expected %g, got %g", i, cfg.MinGreen, g)
		}
	}
}

func TestComputeMaxClampRedistributes(t *testing.T) {
	cfg := testConfig()
	cfg.BaseCycleTime = 260
	cfg.MaxCycleTime = 260
	plan := mustCompute(t, []int{60, 15, 18, 12}, cfg)

	// budget = 240, total = 105: the 60-count lane's raw share (137.1)
	// clamps at MaxGreen and the remaining 150s redistributes among the
	// other lanes in proportion 15:18:12.
	want := []float64{90, 50, 60, 40}
	if diff := cmp.Diff(want, plan.GreenTimes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("green times mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeSkewedDemandBothBoundsPin(t *testing.T) {
	cfg := testConfig()
	plan := mustCompute(t, []int{60, 2, 2, 2}, cfg)

	// The dominant lane clamps at MaxGreen while the near-empty lanes
	// pin at MinGreen; bounds are hard, so the total legitimately
	// overshoots the 120s cycle target.
	want := []float64{90, 15, 15, 15}
	if diff := cmp.Diff(want, plan.GreenTimes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("green times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(155.0, plan.TotalCycleTime, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("total cycle time mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeCycleExtension(t *testing.T) {
	cfg := testConfig()

	// 140 vehicles: 40 over the free threshold extends the cycle by
	// 4*10s to 160s, giving a 140s green budget.
	plan := mustCompute(t, []int{50, 40, 30, 20}, cfg)
	want := []float64{50, 40, 30, 20}
	if diff := cmp.Diff(want, plan.GreenTimes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("green times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(160.0, plan.TotalCycleTime, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("extended cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeCycleExtensionCapped(t *testing.T) {
	cfg := testConfig()
	plan := mustCompute(t, []int{100, 80, 40, 30}, cfg)

	// 250 vehicles would extend the cycle to 270s; MaxCycleTime caps it
	// at 180s and the 160s budget splits proportionally.
	if diff := cmp.Diff(180.0, plan.TotalCycleTime, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("capped cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeBoundsAlwaysHold(t *testing.T) {
	cfg := testConfig()
	vectors := [][]int{
		{0, 0, 0, 0},
		{1, 0, 0, 0},
		{10, 8, 12, 6},
		{60, 15, 18, 12},
		{60, 2, 2, 2},
		{200, 0, 0, 1},
		{1000, 1000, 1000, 1000},
		{7, 7, 7, 7},
		{99, 1, 50, 25},
	}

	for _, counts := range vectors {
		plan := mustCompute(t, counts, cfg)
		var sum float64
		for i, g := range plan.GreenTimes {
			if g < cfg.MinGreen || g > cfg.MaxGreen {
				t.Errorf("counts %v lane %d: green %g outside [%g, %g]", counts, i, g, cfg.MinGreen, cfg.MaxGreen)
			}
			sum += g
		}
		if sum < float64(cfg.LaneCount)*cfg.MinGreen {
			t.Errorf("counts %v: total green %g below lane-count minimum", counts, sum)
		}
	}
}

func TestComputeEqualCountsGetEqualGreen(t *testing.T) {
	cfg := testConfig()
	plan := mustCompute(t, []int{30, 30, 9, 9}, cfg)

	if plan.GreenTimes[0] != plan.GreenTimes[1] {
		t.Errorf("lanes 0 and 1 have equal counts but unequal green: %g vs %g",
			plan.GreenTimes[0], plan.GreenTimes[1])
	}
	if plan.GreenTimes[2] != plan.GreenTimes[3] {
		t.Errorf("lanes 2 and 3 have equal counts but unequal green: %g vs %g",
			plan.GreenTimes[2], plan.GreenTimes[3])
	}
}

func TestComputeMonotonicInOwnCount(t *testing.T) {
	cfg := testConfig()
	base := mustCompute(t, []int{10, 8, 12, 6}, cfg)
	more := mustCompute(t, []int{20, 8, 12, 6}, cfg)

	if more.GreenTimes[0] < base.GreenTimes[0] {
		t.Errorf("raising lane 0 count decreased its green: %g -> %g",
			base.GreenTimes[0], more.GreenTimes[0])
	}
}

func TestComputeDeterministic(t *testing.T) {
	cfg := testConfig()
	a := mustCompute(t, []int{17, 42, 3, 99}, cfg)
	b := mustCompute(t, []int{17, 42, 3, 99}, cfg)

	// Bit-identical greens; only ComputedAt may differ.
	if diff := cmp.Diff(a.GreenTimes, b.GreenTimes); diff != "" {
		t.Errorf("repeat computation differs (-first +second):\n%s", diff)
	}
	if a.TotalCycleTime != b.TotalCycleTime {
		t.Errorf("repeat computation changed total: %g vs %g", a.TotalCycleTime, b.TotalCycleTime)
	}
}

func TestComputeRejectsWrongLaneCount(t *testing.T) {
	cfg := testConfig()
	_, err := Compute(Observations([]int{1, 2, 3}), cfg)

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestComputeRejectsNegativeCount(t *testing.T) {
	cfg := testConfig()
	_, err := Compute(Observations([]int{1, -2, 3, 4}), cfg)

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestComputeInfeasibleBudget(t *testing.T) {
	cfg := testConfig()
	cfg.YellowTime = 40 // 4*40 = 160s of yellow against a 120s cycle

	_, err := Compute(Observations([]int{1, 2, 3, 4}), cfg)

	var infeasible *InfeasibleConfigError
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected InfeasibleConfigError, got %v", err)
	}
}

func TestComputeGeneralizesToSixLanes(t *testing.T) {
	cfg := testConfig()
	cfg.LaneCount = 6
	cfg.BaseCycleTime = 240
	cfg.MaxCycleTime = 300

	plan := mustCompute(t, []int{5, 10, 15, 20, 25, 30}, cfg)
	if len(plan.GreenTimes) != 6 {
		t.Fatalf("expected 6 green phases, got %d", len(plan.GreenTimes))
	}
	for i, g := range plan.GreenTimes {
		if g < cfg.MinGreen || g > cfg.MaxGreen {
			t.Errorf("lane %d: green %g outside bounds", i, g)
		}
	}
}

func TestRoundedOneDecimal(t *testing.T) {
	plan := TimingPlan{
		GreenTimes:     []float64{27.777777, 22.222222},
		YellowTime:     5,
		TotalCycleTime: 59.999999,
	}
	rounded := plan.Rounded()

	want := []float64{27.8, 22.2}
	if diff := cmp.Diff(want, rounded.GreenTimes); diff != "" {
		t.Errorf("rounded greens mismatch (-want +got):\n%s", diff)
	}
	if rounded.TotalCycleTime != 60.0 {
		t.Errorf("rounded total: expected 60.0, got %g", rounded.TotalCycleTime)
	}
	// The original plan is untouched.
	if plan.GreenTimes[0] != 27.777777 {
		t.Errorf("Rounded mutated the source plan: %g", plan.GreenTimes[0])
	}
}

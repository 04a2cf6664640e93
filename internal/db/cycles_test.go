package db

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRecordCycleRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "roundtrip")

	rec := &CycleRecord{
		JunctionID:     j.ID,
		Mode:           "adaptive",
		LaneCounts:     []int{10, 8, 12, 6},
		GreenTimes:     []float64{27.8, 22.2, 33.3, 16.7},
		YellowTime:     5,
		TotalCycleTime: 120,
		TotalVehicles:  36,
		CalcMicros:     420,
	}
	if err := db.RecordCycle(rec); err != nil {
		t.Fatalf("RecordCycle failed: %v", err)
	}
	if !strings.HasPrefix(rec.CycleID, "cyc_") {
		t.Errorf("expected assigned cyc_ ID, got %q", rec.CycleID)
	}

	got, err := db.LatestCycle(j.ID)
	if err != nil {
		t.Fatalf("LatestCycle failed: %v", err)
	}
	if got == nil {
		t.Fatal("no cycle found after insert")
	}
	if got.CycleID != rec.CycleID || got.Mode != "adaptive" || got.TotalVehicles != 36 {
		t.Errorf("cycle mismatch: %+v", got)
	}
	if diff := cmp.Diff(rec.LaneCounts, got.LaneCounts); diff != "" {
		t.Errorf("lane counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rec.GreenTimes, got.GreenTimes); diff != "" {
		t.Errorf("green times mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestCycleEmpty(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "empty")

	got, err := db.LatestCycle(j.ID)
	if err != nil {
		t.Fatalf("LatestCycle failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for junction with no cycles, got %+v", got)
	}
}

func TestRecentCyclesOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "history")
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		rec := &CycleRecord{
			JunctionID:     j.ID,
			Mode:           "adaptive",
			LaneCounts:     []int{i, i, i, i},
			GreenTimes:     []float64{25, 25, 25, 25},
			YellowTime:     5,
			TotalCycleTime: 120,
			TotalVehicles:  4 * i,
			ComputedAt:     now.Add(-time.Duration(i) * time.Minute),
		}
		if err := db.RecordCycle(rec); err != nil {
			t.Fatalf("RecordCycle failed: %v", err)
		}
	}

	cycles, err := db.RecentCycles(j.ID, 3)
	if err != nil {
		t.Fatalf("RecentCycles failed: %v", err)
	}
	if len(cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(cycles))
	}
	// Newest first: the most recent record had lane counts of zeros.
	if cycles[0].TotalVehicles != 0 {
		t.Errorf("expected newest cycle first, got %+v", cycles[0])
	}
	for i := 1; i < len(cycles); i++ {
		if cycles[i].ComputedAt.After(cycles[i-1].ComputedAt) {
			t.Error("cycles not ordered newest first")
		}
	}
}

func TestRecordCycleFallbackMode(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "fallback")

	rec := &CycleRecord{
		JunctionID:     j.ID,
		Mode:           "fallback",
		LaneCounts:     []int{0, 0, 0, 0},
		GreenTimes:     []float64{90, 90, 90, 90},
		YellowTime:     5,
		TotalCycleTime: 380,
	}
	if err := db.RecordCycle(rec); err != nil {
		t.Fatalf("RecordCycle failed: %v", err)
	}

	got, err := db.LatestCycle(j.ID)
	if err != nil {
		t.Fatalf("LatestCycle failed: %v", err)
	}
	if got.Mode != "fallback" {
		t.Errorf("expected fallback mode, got %q", got.Mode)
	}
}

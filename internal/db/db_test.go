package db

import (
	"context"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestJunction(t *testing.T, db *DB, name string) *Junction {
	t.Helper()
	j := &Junction{Name: name, Location: "Test Location", LaneCount: 4}
	if err := db.CreateJunction(j); err != nil {
		t.Fatalf("CreateJunction failed: %v", err)
	}
	return j
}

func TestNewDBHealthy(t *testing.T) {
	db := setupTestDB(t)
	if !db.Healthy(context.Background()) {
		t.Error("fresh database should be healthy")
	}
}

func TestCreateAndGetJunction(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "MG Road / Ring Road")

	if j.ID == 0 {
		t.Fatal("CreateJunction did not assign an ID")
	}

	got, err := db.GetJunction(j.ID)
	if err != nil {
		t.Fatalf("GetJunction failed: %v", err)
	}
	if got == nil {
		t.Fatal("junction not found after insert")
	}
	if got.Name != j.Name || got.LaneCount != 4 {
		t.Errorf("junction mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestGetJunctionMissing(t *testing.T) {
	db := setupTestDB(t)
	got, err := db.GetJunction(999)
	if err != nil {
		t.Fatalf("GetJunction failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing junction, got %+v", got)
	}
}

func TestUpsertJunction(t *testing.T) {
	db := setupTestDB(t)

	j := &Junction{ID: 7, Name: "Airport Road", LaneCount: 4}
	if err := db.UpsertJunction(j); err != nil {
		t.Fatalf("UpsertJunction insert failed: %v", err)
	}

	j.Name = "Airport Road (renamed)"
	j.LaneCount = 6
	if err := db.UpsertJunction(j); err != nil {
		t.Fatalf("UpsertJunction update failed: %v", err)
	}

	got, err := db.GetJunction(7)
	if err != nil {
		t.Fatalf("GetJunction failed: %v", err)
	}
	if got == nil || got.Name != "Airport Road (renamed)" || got.LaneCount != 6 {
		t.Errorf("upsert did not update row: %+v", got)
	}

	junctions, err := db.ListJunctions()
	if err != nil {
		t.Fatalf("ListJunctions failed: %v", err)
	}
	if len(junctions) != 1 {
		t.Errorf("expected 1 junction, got %d", len(junctions))
	}
}

func TestUpsertJunctionRequiresID(t *testing.T) {
	db := setupTestDB(t)
	if err := db.UpsertJunction(&Junction{Name: "no id", LaneCount: 4}); err == nil {
		t.Error("expected error for upsert without ID")
	}
}

func TestCreateJunctionRejectsZeroLanes(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateJunction(&Junction{Name: "bad"}); err == nil {
		t.Error("expected error for zero lane_count")
	}
}

func TestListJunctionsOrdered(t *testing.T) {
	db := setupTestDB(t)
	createTestJunction(t, db, "first")
	createTestJunction(t, db, "second")

	junctions, err := db.ListJunctions()
	if err != nil {
		t.Fatalf("ListJunctions failed: %v", err)
	}
	if len(junctions) != 2 {
		t.Fatalf("expected 2 junctions, got %d", len(junctions))
	}
	if junctions[0].ID >= junctions[1].ID {
		t.Error("junctions not ordered by ID")
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("migrations left database dirty")
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	// Schema is usable after migration.
	createTestJunction(t, db, "post-migration")
}

func TestMigrateDownRollsBackOneVersion(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateDown("migrations"); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("rollback left database dirty")
	}
	if version != 1 {
		t.Errorf("expected version 1 after one rollback, got %d", version)
	}
}

func TestMigrateForceSetsVersion(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateForce("migrations", 1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("force left database dirty")
	}
	if version != 1 {
		t.Errorf("expected forced version 1, got %d", version)
	}

	// Force records the version without running migrations, so up
	// re-applies the skipped step cleanly.
	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp after force failed: %v", err)
	}
}

func TestDetectionWindowing(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "windowed")
	now := time.Now().UTC()

	// Three recent detections across two lanes, one stale.
	mustDetect := func(lane int, tag string, at time.Time) {
		t.Helper()
		if err := db.RecordDetectionAt(j.ID, lane, tag, "car", at); err != nil {
			t.Fatalf("RecordDetectionAt failed: %v", err)
		}
	}
	mustDetect(1, "TAG001", now.Add(-time.Minute))
	mustDetect(1, "TAG002", now.Add(-2*time.Minute))
	mustDetect(3, "TAG003", now.Add(-time.Minute))
	mustDetect(2, "TAG004", now.Add(-time.Hour))

	counts, err := db.LaneCountsSince(j.ID, 4, 5*time.Minute)
	if err != nil {
		t.Fatalf("LaneCountsSince failed: %v", err)
	}
	want := []int{2, 0, 1, 0}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("lane %d: expected %d detections, got %d", i+1, want[i], counts[i])
		}
	}

	today, err := db.DetectionCountByDay(j.ID, now)
	if err != nil {
		t.Fatalf("DetectionCountByDay failed: %v", err)
	}
	if today != 4 {
		t.Errorf("expected 4 detections today, got %d", today)
	}
}

func TestLaneCountsIgnoreOutOfRangeLanes(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "stray-lane")

	if err := db.RecordDetection(j.ID, 9, "TAG_STRAY", "truck"); err != nil {
		t.Fatalf("RecordDetection failed: %v", err)
	}
	counts, err := db.LaneCountsSince(j.ID, 4, time.Hour)
	if err != nil {
		t.Fatalf("LaneCountsSince failed: %v", err)
	}
	for i, n := range counts {
		if n != 0 {
			t.Errorf("lane %d: expected 0, got %d", i+1, n)
		}
	}
}

func TestRecordDetectionValidation(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "validation")

	if err := db.RecordDetection(j.ID, 0, "TAG", "car"); err == nil {
		t.Error("expected error for lane 0")
	}
	if err := db.RecordDetection(j.ID, 1, "", "car"); err == nil {
		t.Error("expected error for empty tag")
	}
}

func TestRecentDetectionsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	j := createTestJunction(t, db, "recent")
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		at := now.Add(-time.Duration(i) * time.Minute)
		if err := db.RecordDetectionAt(j.ID, 1, "TAG", "car", at); err != nil {
			t.Fatalf("RecordDetectionAt failed: %v", err)
		}
	}

	detections, err := db.RecentDetections(j.ID, 3)
	if err != nil {
		t.Fatalf("RecentDetections failed: %v", err)
	}
	if len(detections) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(detections))
	}
	for i := 1; i < len(detections); i++ {
		if detections[i].DetectedAt.After(detections[i-1].DetectedAt) {
			t.Error("detections not ordered newest first")
		}
	}
}

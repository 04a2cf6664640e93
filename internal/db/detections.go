package db

import (
	"fmt"
	"time"
)

// sqliteTimeLayout matches sqlite's CURRENT_TIMESTAMP format so stored
// and compared timestamps stay lexicographically consistent.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Detection is one vehicle passing a gantry reader on a lane.
type Detection struct {
	ID          int64     `json:"detection_id"`
	JunctionID  int64     `json:"junction_id"`
	LaneNumber  int       `json:"lane_number"`
	TagID       string    `json:"tag_id"`
	VehicleType string    `json:"vehicle_type"`
	DetectedAt  time.Time `json:"detected_at"`
}

// RecordDetection logs a vehicle detection stamped with the current
// time.
func (db *DB) RecordDetection(junctionID int64, laneNumber int, tagID, vehicleType string) error {
	return db.RecordDetectionAt(junctionID, laneNumber, tagID, vehicleType, time.Now().UTC())
}

// RecordDetectionAt logs a vehicle detection with an explicit
// timestamp; used by backfill tooling and tests.
func (db *DB) RecordDetectionAt(junctionID int64, laneNumber int, tagID, vehicleType string, at time.Time) error {
	if laneNumber < 1 {
		return fmt.Errorf("lane_number must be at least 1, got %d", laneNumber)
	}
	if tagID == "" {
		return fmt.Errorf("tag_id must not be empty")
	}
	if vehicleType == "" {
		vehicleType = "car"
	}
	_, err := db.Exec(
		`INSERT INTO vehicle_detections (junction_id, lane_number, tag_id, vehicle_type, detected_at)
		 VALUES (?, ?, ?, ?, ?)`,
		junctionID, laneNumber, tagID, vehicleType, at.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record detection: %w", err)
	}
	return nil
}

// LaneCountsSince returns per-lane detection counts within the given
// window, as a vector of laneCount entries indexed by lane number - 1.
// Detections on lanes beyond laneCount are ignored.
func (db *DB) LaneCountsSince(junctionID int64, laneCount int, window time.Duration) ([]int, error) {
	cutoff := time.Now().UTC().Add(-window).Format(sqliteTimeLayout)
	rows, err := db.Query(
		`SELECT lane_number, COUNT(*)
		 FROM vehicle_detections
		 WHERE junction_id = ? AND detected_at >= ?
		 GROUP BY lane_number`,
		junctionID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	defer rows.Close()

	counts := make([]int, laneCount)
	for rows.Next() {
		var lane, n int
		if err := rows.Scan(&lane, &n); err != nil {
			return nil, err
		}
		if lane >= 1 && lane <= laneCount {
			counts[lane-1] = n
		}
	}
	return counts, rows.Err()
}

// DetectionCountByDay returns the number of detections at a junction
// on the given UTC calendar day.
func (db *DB) DetectionCountByDay(junctionID int64, day time.Time) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM vehicle_detections
		 WHERE junction_id = ? AND date(detected_at) = date(?)`,
		junctionID, day.UTC().Format(sqliteTimeLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count detections by day: %w", err)
	}
	return n, nil
}

// RecentDetections returns the newest detections for a junction,
// newest first.
func (db *DB) RecentDetections(junctionID int64, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(
		`SELECT detection_id, junction_id, lane_number, tag_id, vehicle_type, detected_at
		 FROM vehicle_detections
		 WHERE junction_id = ?
		 ORDER BY detected_at DESC, detection_id DESC
		 LIMIT ?`,
		junctionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.JunctionID, &d.LaneNumber, &d.TagID, &d.VehicleType, &d.DetectedAt); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CycleRecord is one computed and served traffic cycle. Lane vectors
// are stored as JSON arrays so the schema holds for any lane count.
type CycleRecord struct {
	CycleID        string    `json:"cycle_id"`
	JunctionID     int64     `json:"junction_id"`
	Mode           string    `json:"mode"`
	LaneCounts     []int     `json:"lane_counts"`
	GreenTimes     []float64 `json:"green_times"`
	YellowTime     float64   `json:"yellow_time"`
	TotalCycleTime float64   `json:"total_cycle_time"`
	TotalVehicles  int       `json:"total_vehicles"`
	CalcMicros     int64     `json:"calc_micros"`
	ComputedAt     time.Time `json:"computed_at"`
}

// RecordCycle persists a computed cycle. A missing CycleID is
// assigned.
func (db *DB) RecordCycle(rec *CycleRecord) error {
	if rec.CycleID == "" {
		rec.CycleID = fmt.Sprintf("cyc_%s", uuid.NewString())
	}
	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = time.Now().UTC()
	}

	laneCounts, err := json.Marshal(rec.LaneCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal lane counts: %w", err)
	}
	greenTimes, err := json.Marshal(rec.GreenTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal green times: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO traffic_cycles
			(cycle_id, junction_id, mode, lane_counts, green_times,
			 yellow_time, total_cycle_time, total_vehicles, calc_micros, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.JunctionID, rec.Mode, string(laneCounts), string(greenTimes),
		rec.YellowTime, rec.TotalCycleTime, rec.TotalVehicles, rec.CalcMicros,
		rec.ComputedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// LatestCycle returns the most recent cycle for a junction, or nil if
// none has been recorded yet.
func (db *DB) LatestCycle(junctionID int64) (*CycleRecord, error) {
	cycles, err := db.RecentCycles(junctionID, 1)
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, nil
	}
	return &cycles[0], nil
}

// RecentCycles returns the newest cycles for a junction, newest first.
func (db *DB) RecentCycles(junctionID int64, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(
		`SELECT cycle_id, junction_id, mode, lane_counts, green_times,
		        yellow_time, total_cycle_time, total_vehicles, calc_micros, computed_at
		 FROM traffic_cycles
		 WHERE junction_id = ?
		 ORDER BY computed_at DESC, cycle_id DESC
		 LIMIT ?`,
		junctionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cycles: %w", err)
	}
	defer rows.Close()

	var cycles []CycleRecord
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *rec)
	}
	return cycles, rows.Err()
}

func scanCycle(rows *sql.Rows) (*CycleRecord, error) {
	var rec CycleRecord
	var laneCounts, greenTimes string
	var calcMicros sql.NullInt64
	if err := rows.Scan(
		&rec.CycleID, &rec.JunctionID, &rec.Mode, &laneCounts, &greenTimes,
		&rec.YellowTime, &rec.TotalCycleTime, &rec.TotalVehicles, &calcMicros, &rec.ComputedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(laneCounts), &rec.LaneCounts); err != nil {
		return nil, fmt.Errorf("cycle %s has malformed lane_counts: %w", rec.CycleID, err)
	}
	if err := json.Unmarshal([]byte(greenTimes), &rec.GreenTimes); err != nil {
		return nil, fmt.Errorf("cycle %s has malformed green_times: %w", rec.CycleID, err)
	}
	rec.CalcMicros = calcMicros.Int64
	return &rec, nil
}

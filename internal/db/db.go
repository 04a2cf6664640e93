// Package db persists junction definitions, vehicle detections, and
// computed traffic cycles in a local sqlite database.
package db

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (and if necessary creates) the database at path and
// applies the base schema. Use ":memory:" for tests.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS junctions (
			junction_id       INTEGER PRIMARY KEY AUTOINCREMENT,
			name              TEXT NOT NULL,
			location          TEXT,
			lane_count        INTEGER NOT NULL DEFAULT 4,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS vehicle_detections (
			detection_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			junction_id       INTEGER NOT NULL,
			lane_number       INTEGER NOT NULL,
			tag_id            TEXT NOT NULL,
			vehicle_type      TEXT NOT NULL DEFAULT 'car',
			detected_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(junction_id) REFERENCES junctions(junction_id)
		);
		CREATE TABLE IF NOT EXISTS traffic_cycles (
			cycle_id          TEXT PRIMARY KEY,
			junction_id       INTEGER NOT NULL,
			mode              TEXT NOT NULL,
			lane_counts       TEXT NOT NULL,
			green_times       TEXT NOT NULL,
			yellow_time       DOUBLE NOT NULL,
			total_cycle_time  DOUBLE NOT NULL,
			total_vehicles    BIGINT NOT NULL,
			calc_micros       BIGINT,
			computed_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(junction_id) REFERENCES junctions(junction_id)
		);
		CREATE INDEX IF NOT EXISTS idx_detections_junction_time
			ON vehicle_detections(junction_id, detected_at);
		CREATE INDEX IF NOT EXISTS idx_cycles_junction_time
			ON traffic_cycles(junction_id, computed_at);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Healthy reports whether the database connection is usable.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.PingContext(ctx) == nil
}

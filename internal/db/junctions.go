package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Junction is a monitored road junction.
type Junction struct {
	ID        int64     `json:"junction_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	LaneCount int       `json:"lane_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateJunction inserts a junction and fills in its assigned ID.
func (db *DB) CreateJunction(j *Junction) error {
	if j.LaneCount < 1 {
		return fmt.Errorf("junction %q: lane_count must be at least 1", j.Name)
	}
	res, err := db.Exec(
		`INSERT INTO junctions (name, location, lane_count) VALUES (?, ?, ?)`,
		j.Name, j.Location, j.LaneCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert junction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read junction id: %w", err)
	}
	j.ID = id
	return nil
}

// UpsertJunction inserts a junction with an explicit ID, updating its
// metadata if the row already exists. Used at startup to sync the
// configured junctions into the store.
func (db *DB) UpsertJunction(j *Junction) error {
	if j.ID == 0 {
		return fmt.Errorf("UpsertJunction requires an explicit junction_id")
	}
	_, err := db.Exec(`
		INSERT INTO junctions (junction_id, name, location, lane_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(junction_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			lane_count = excluded.lane_count`,
		j.ID, j.Name, j.Location, j.LaneCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert junction %d: %w", j.ID, err)
	}
	return nil
}

// GetJunction returns one junction, or nil if it does not exist.
func (db *DB) GetJunction(id int64) (*Junction, error) {
	var j Junction
	err := db.QueryRow(
		`SELECT junction_id, name, COALESCE(location, ''), lane_count, created_at
		 FROM junctions WHERE junction_id = ?`, id,
	).Scan(&j.ID, &j.Name, &j.Location, &j.LaneCount, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load junction %d: %w", id, err)
	}
	return &j, nil
}

// ListJunctions returns all junctions ordered by ID.
func (db *DB) ListJunctions() ([]Junction, error) {
	rows, err := db.Query(
		`SELECT junction_id, name, COALESCE(location, ''), lane_count, created_at
		 FROM junctions ORDER BY junction_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list junctions: %w", err)
	}
	defer rows.Close()

	var junctions []Junction
	for rows.Next() {
		var j Junction
		if err := rows.Scan(&j.ID, &j.Name, &j.Location, &j.LaneCount, &j.CreatedAt); err != nil {
			return nil, err
		}
		junctions = append(junctions, j)
	}
	return junctions, rows.Err()
}

package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Decision is one journal row: what was seen and what the authority said.
type Decision struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	VehicleType string    `json:"vehicle_type"`
	Color       string    `json:"color"`
	Score       float64   `json:"score"`
	RegionW     int       `json:"region_w"`
	RegionH     int       `json:"region_h"`
	Allowed     bool      `json:"allowed"`
	Message     string    `json:"message"`
	Outcome     string    `json:"outcome"`
	Simulated   bool      `json:"simulated"`
}

func (d *Decision) String() string {
	verdict := "denied"
	if d.Allowed {
		verdict = "granted"
	}
	return fmt.Sprintf("%s %s %s via %s: %s (%s)", d.ID, d.Color, d.VehicleType, d.Source, verdict, d.Message)
}

// CategoryStats counts decisions for one vehicle type.
type CategoryStats struct {
	VehicleType string `json:"vehicle_type"`
	Granted     int    `json:"granted"`
	Denied      int    `json:"denied"`
}

// Total returns the number of decisions in the category.
func (s CategoryStats) Total() int {
	return s.Granted + s.Denied
}

// RecordDecision inserts d. A missing ID is filled with a new UUID and a
// zero CreatedAt with the current time; both are written back to d.
func (db *DB) RecordDecision(d *Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := db.Exec(
		`INSERT INTO decisions (
			id, created_at, source, vehicle_type, color, score,
			region_w, region_h, allowed, message, outcome, simulated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreatedAt.UnixNano(), d.Source, d.VehicleType, d.Color, d.Score,
		d.RegionW, d.RegionH, d.Allowed, d.Message, d.Outcome, d.Simulated,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (db *DB) RecentDecisions(limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, created_at, source, vehicle_type, color, score,
			region_w, region_h, allowed, message, outcome, simulated
		FROM decisions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var created int64
		if err := rows.Scan(
			&d.ID, &created, &d.Source, &d.VehicleType, &d.Color, &d.Score,
			&d.RegionW, &d.RegionH, &d.Allowed, &d.Message, &d.Outcome, &d.Simulated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.CreatedAt = time.Unix(0, created)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecisionStats returns grant and deny counts per vehicle type, ordered by
// vehicle type.
func (db *DB) DecisionStats() ([]CategoryStats, error) {
	rows, err := db.Query(
		`SELECT vehicle_type,
			SUM(CASE WHEN allowed THEN 1 ELSE 0 END),
			SUM(CASE WHEN allowed THEN 0 ELSE 1 END)
		FROM decisions GROUP BY vehicle_type ORDER BY vehicle_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision stats: %w", err)
	}
	defer rows.Close()

	var out []CategoryStats
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.VehicleType, &s.Granted, &s.Denied); err != nil {
			return nil, fmt.Errorf("failed to scan decision stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FeatureScores returns the match score of every feature-path decision in
// insertion order.
func (db *DB) FeatureScores() ([]float64, error) {
	rows, err := db.Query(`SELECT score FROM decisions WHERE source = 'features' ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature scores: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

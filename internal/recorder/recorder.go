// Package recorder persists completed session summaries to a local SQLite
// database, one row per session plus one per completed unit.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// DB is the session result store. Save is called by the orchestrator once
// per completed session; the query methods serve the history views.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the results database at dir/results.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "results.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening results db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		session_id  TEXT PRIMARY KEY,
		started_at  TIMESTAMP NOT NULL,
		duration_s  REAL NOT NULL,
		total_units INTEGER NOT NULL,
		max_speed   REAL NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		session_id  TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		phase       TEXT NOT NULL,
		label       TEXT NOT NULL,
		distance_yd INTEGER NOT NULL,
		time_s      REAL NOT NULL,
		measured_yd REAL NOT NULL,
		max_speed   REAL NOT NULL,
		heart_rate  INTEGER NOT NULL,
		synthetic   INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating units table: %w", err)
	}

	return &DB{db: db}, nil
}

// Save writes one completed session and its units atomically.
func (d *DB) Save(s workout.Summary) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO sessions (session_id, started_at, duration_s, total_units, max_speed)
		 VALUES (?, ?, ?, ?, ?)`,
		s.SessionID.String(), s.StartedAt.UTC(), s.Duration.Seconds(), s.TotalUnits, s.MaxSpeed,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.SessionID, err)
	}

	for i, u := range s.CompletedUnits {
		synthetic := 0
		if u.Synthetic {
			synthetic = 1
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO units
			 (session_id, seq, phase, label, distance_yd, time_s, measured_yd, max_speed, heart_rate, synthetic)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SessionID.String(), i, u.Phase.String(), u.Unit.Label, u.Unit.DistanceYards,
			u.Result.Time, u.Result.Distance, u.Result.MaxSpeed, u.HeartRate, synthetic,
		)
		if err != nil {
			return fmt.Errorf("saving unit %d of session %s: %w", i, s.SessionID, err)
		}
	}

	return tx.Commit()
}

// SessionRecord is one row of the saved-session history.
type SessionRecord struct {
	SessionID  string
	StartedAt  time.Time
	Duration   time.Duration
	TotalUnits int
	MaxSpeed   float64
}

// Sessions lists saved sessions, newest first.
func (d *DB) Sessions() ([]SessionRecord, error) {
	rows, err := d.db.Query(
		`SELECT session_id, started_at, duration_s, total_units, max_speed
		 FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var durationS float64
		if err := rows.Scan(&r.SessionID, &r.StartedAt, &durationS, &r.TotalUnits, &r.MaxSpeed); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		r.Duration = time.Duration(durationS * float64(time.Second))
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestSpeed returns the fastest recorded sprint speed across all sessions,
// zero when nothing is recorded yet.
func (d *DB) BestSpeed() (float64, error) {
	var best sql.NullFloat64
	err := d.db.QueryRow(`SELECT MAX(max_speed) FROM sessions`).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("querying best speed: %w", err)
	}
	return best.Float64, nil
}

// Close closes the results database.
func (d *DB) Close() error {
	return d.db.Close()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/leveling"
	"github.com/okian/defend100/internal/domain/progress"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite  = "sqlite"
	mainProfileID = "main"
)

// OpenSQLite opens (and creates if missing) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS goal_overrides (
			key TEXT PRIMARY KEY,
			weight INTEGER NULL,
			threshold REAL NULL,
			unit TEXT NULL,
			is_active INTEGER NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress (
			date_key TEXT NOT NULL,
			goal_key TEXT NOT NULL,
			value REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (date_key, goal_key)
		);`,
		`CREATE TABLE IF NOT EXISTS profile (
			key TEXT PRIMARY KEY,
			xp_total INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_date_key ON progress(date_key);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SQLiteStore keeps goal overrides, progress rows and the profile in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens path and migrates it.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// LoadGoalOverrides implements GoalRepository. Rows for unknown goal keys
// are ignored.
func (s *SQLiteStore) LoadGoalOverrides(ctx context.Context) (goals.Overrides, bool, error) {
	defer observe(driverSQLite, "load_goals", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT key, weight, threshold, unit, is_active FROM goal_overrides`)
	if err != nil {
		return nil, false, fmt.Errorf("goal overrides query: %w", err)
	}
	defer rows.Close()

	out := goals.Overrides{}
	found := false
	for rows.Next() {
		var (
			key       string
			weight    sql.NullInt64
			threshold sql.NullFloat64
			unit      sql.NullString
			active    sql.NullBool
		)
		if err := rows.Scan(&key, &weight, &threshold, &unit, &active); err != nil {
			return nil, false, fmt.Errorf("%w: goal overrides scan: %v", goals.ErrMalformed, err)
		}
		found = true
		k := goals.Key(key)
		if !k.Valid() {
			continue
		}
		var o goals.Override
		if weight.Valid {
			w := int(weight.Int64)
			o.Weight = &w
		}
		if threshold.Valid {
			t := threshold.Float64
			o.Threshold = &t
		}
		if unit.Valid {
			u := unit.String
			o.Unit = &u
		}
		if active.Valid {
			a := active.Bool
			o.Active = &a
		}
		out[k] = o
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("goal overrides rows: %w", err)
	}
	return out, found, nil
}

// SaveGoalOverrides implements GoalRepository. The stored set is replaced.
func (s *SQLiteStore) SaveGoalOverrides(ctx context.Context, o goals.Overrides) error {
	defer observe(driverSQLite, "save_goals", time.Now())
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM goal_overrides`); err != nil {
			return fmt.Errorf("goal overrides clear: %w", err)
		}
		for _, k := range goals.Keys {
			v, ok := o[k]
			if !ok {
				continue
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO goal_overrides (key, weight, threshold, unit, is_active) VALUES (?, ?, ?, ?, ?)`,
				string(k), nullInt(v.Weight), nullFloat(v.Threshold), nullString(v.Unit), nullBool(v.Active))
			if err != nil {
				return fmt.Errorf("goal overrides insert %s: %w", k, err)
			}
		}
		return nil
	})
}

// LoadAllProgress implements ProgressRepository. Rows with an invalid date,
// an unknown goal key or a non-finite value are skipped.
func (s *SQLiteStore) LoadAllProgress(ctx context.Context) (map[progress.DateKey]progress.Entry, error) {
	defer observe(driverSQLite, "load_progress", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT date_key, goal_key, value FROM progress ORDER BY date_key`)
	if err != nil {
		return map[progress.DateKey]progress.Entry{}, fmt.Errorf("progress query: %w", err)
	}
	defer rows.Close()

	out := make(map[progress.DateKey]progress.Entry)
	for rows.Next() {
		var (
			date, key string
			value     sql.NullFloat64
		)
		if err := rows.Scan(&date, &key, &value); err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
		}
		d, k := progress.DateKey(date), goals.Key(key)
		if !d.Valid() || !k.Valid() || !value.Valid || math.IsNaN(value.Float64) || math.IsInf(value.Float64, 0) {
			continue
		}
		e, ok := out[d]
		if !ok {
			e = progress.Entry{}
			out[d] = e
		}
		e[k] = value.Float64
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("progress rows: %w", err)
	}
	return out, nil
}

// SaveProgressValue implements ProgressRepository as an upsert.
func (s *SQLiteStore) SaveProgressValue(ctx context.Context, date progress.DateKey, key goals.Key, value float64) error {
	defer observe(driverSQLite, "save_progress", time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (date_key, goal_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date_key, goal_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(date), string(key), value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("progress upsert: %w", err)
	}
	return nil
}

// SaveCumulativeXP implements ExperienceRepository. The level column is
// derived from total.
func (s *SQLiteStore) SaveCumulativeXP(ctx context.Context, total int) error {
	defer observe(driverSQLite, "save_xp", time.Now())
	level := leveling.Rank(float64(total)).Level
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (key, xp_total, level, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET xp_total = excluded.xp_total, level = excluded.level, updated_at = excluded.updated_at
	`, mainProfileID, total, level, s.now().UTC())
	if err != nil {
		return fmt.Errorf("profile upsert: %w", err)
	}
	return nil
}

// LoadCumulativeXP implements ExperienceRepository.
func (s *SQLiteStore) LoadCumulativeXP(ctx context.Context) (int, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT xp_total FROM profile WHERE key = ?`, mainProfileID)
	var total int
	if err := row.Scan(&total); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("profile get: %w", err)
	}
	return total, true, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a SQL transaction.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

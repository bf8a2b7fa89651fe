// Package store provides the record store backends: a local SQLite
// database and a sheet-style CSV file. Both satisfy record.Store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ksuda/kiroku/internal/record"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLite is a record store backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ record.Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at dsn, applies
// the recommended pragmas, and migrates the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns all records ordered by date, oldest first.
func (s *SQLite) Load(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recorded_at, subject, level, variant, seconds, mistakes
		 FROM records ORDER BY recorded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var (
			recordedAt string
			r          record.Record
			mistakes   sql.NullInt64
		)
		if err := rows.Scan(&recordedAt, &r.Subject, &r.Level, &r.Variant, &r.Seconds, &mistakes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Date, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
		}
		if mistakes.Valid {
			m := int(mistakes.Int64)
			r.Mistakes = &m
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Append inserts one record.
func (s *SQLite) Append(ctx context.Context, r record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var mistakes sql.NullInt64
	if r.Mistakes != nil {
		mistakes = sql.NullInt64{Int64: int64(*r.Mistakes), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (recorded_at, subject, level, variant, seconds, mistakes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Date.Format(time.RFC3339Nano), r.Subject, r.Level, r.Variant, r.Seconds, mistakes)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Invalidate is a no-op: the database is read directly. Caching is
// layered on by record.NewCachedStore.
func (s *SQLite) Invalidate() {}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			subject TEXT NOT NULL,
			level TEXT NOT NULL,
			variant TEXT NOT NULL DEFAULT '',
			seconds REAL NOT NULL CHECK (seconds > 0),
			mistakes INTEGER CHECK (mistakes IS NULL OR mistakes >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_subject_level ON records(subject, level)`,
		`CREATE INDEX IF NOT EXISTS idx_records_recorded_at ON records(recorded_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// applyPragmas configures SQLite for single-user local use.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

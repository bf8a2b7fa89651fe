// Package record defines the practice-attempt record and the store
// contract the session core consumes.
package record

import (
	"context"
	"fmt"
	"time"
)

// Record is one persisted practice attempt. Records are append-only:
// the application never mutates or deletes them.
type Record struct {
	Date     time.Time
	Subject  string
	Level    string
	Variant  string // optional problem-variant tag
	Seconds  float64
	Mistakes *int // nil when the drill does not track mistakes
}

// Validate checks the fields every record must satisfy before it may
// reach a store.
func (r Record) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("record: subject is empty")
	}
	if r.Level == "" {
		return fmt.Errorf("record: level is empty")
	}
	if r.Seconds <= 0 {
		return fmt.Errorf("record: time must be positive, got %g", r.Seconds)
	}
	if r.Mistakes != nil && *r.Mistakes < 0 {
		return fmt.Errorf("record: mistakes must be non-negative, got %d", *r.Mistakes)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("record: date is not set")
	}
	return nil
}

// Store is the tabular record store boundary. Append works at
// whole-dataset granularity on sheet-like backends; callers must not
// assume a row-level update primitive exists. Concurrent writers from
// independent processes race (last full rewrite wins) — the application
// assumes a single writer in practice and does not defend against this.
type Store interface {
	// Load returns all records. Implementations return an error when
	// the backing store is unreachable or malformed; callers degrade
	// that to an empty dataset with a warning.
	Load(ctx context.Context) ([]Record, error)

	// Append persists one record. Read-after-write consistency is
	// guaranteed only within the writer's own process.
	Append(ctx context.Context, r Record) error

	// Invalidate drops any cached view so the next Load hits the
	// backend.
	Invalidate()
}

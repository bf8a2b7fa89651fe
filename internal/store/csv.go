package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ksuda/kiroku/internal/record"
)

// csvHeader is the sheet column layout. It matches the exported
// spreadsheet the records were originally kept in.
var csvHeader = []string{"date", "subject", "level", "variant", "time", "mistakes"}

// CSV is a record store backed by a single CSV file. The backend has
// no row-level primitive: Append reads the whole file, adds one row,
// and writes the complete new contents back. Concurrent writers from
// other processes therefore race at file granularity.
type CSV struct {
	path string
}

var _ record.Store = (*CSV)(nil)

// NewCSV returns a CSV store at path. The file is created lazily on
// the first Append; a missing file loads as an empty dataset.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Load reads and parses every row. A missing file is an empty
// dataset, not an error.
func (s *CSV) Load(_ context.Context) ([]record.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]record.Record, 0, len(rows)-1)
	for i, row := range rows[1:] { // skip header
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.path, i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Append performs the full read-modify-write: current rows plus the
// new one are written to a temp file which atomically replaces the
// original.
func (s *CSV) Append(ctx context.Context, r record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}
	all := append(existing, r)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".records-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range all {
		if err := w.Write(formatRow(rec)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Invalidate is a no-op: the file is re-read on every Load. Caching
// is layered on by record.NewCachedStore.
func (s *CSV) Invalidate() {}

func parseRow(row []string) (record.Record, error) {
	var r record.Record
	if len(row) < 5 {
		return r, fmt.Errorf("expected at least 5 columns, got %d", len(row))
	}

	date, err := parseDate(row[0])
	if err != nil {
		return r, err
	}
	r.Date = date
	r.Subject = row[1]
	r.Level = row[2]
	r.Variant = row[3]

	r.Seconds, err = strconv.ParseFloat(row[4], 64)
	if err != nil {
		return r, fmt.Errorf("time %q: %w", row[4], err)
	}

	if len(row) > 5 && row[5] != "" {
		m, err := strconv.Atoi(row[5])
		if err != nil {
			return r, fmt.Errorf("mistakes %q: %w", row[5], err)
		}
		r.Mistakes = &m
	}
	return r, nil
}

// parseDate accepts the ISO-8601 shapes found in exported sheets:
// full RFC 3339, a space-separated date-time, or a bare date.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: not an ISO-8601 date or date-time", s)
}

func formatRow(r record.Record) []string {
	mistakes := ""
	if r.Mistakes != nil {
		mistakes = strconv.Itoa(*r.Mistakes)
	}
	return []string{
		r.Date.Format(time.RFC3339),
		r.Subject,
		r.Level,
		r.Variant,
		strconv.FormatFloat(r.Seconds, 'f', -1, 64),
		mistakes,
	}
}

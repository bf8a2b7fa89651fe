package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/store"
)

// Runs the add command end to end against a temp CSV store, in one
// test so the shared cobra flag state stays in a known order.
func TestAddUsesTheSessionValidationPath(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "records.csv")
	cfgPath := filepath.Join(t.TempDir(), "config.toml") // missing: defaults apply

	run := func(args ...string) error {
		rootCmd.SetArgs(append(args, "--csv", csvPath, "--config", cfgPath))
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
		return rootCmd.Execute()
	}

	// An unknown drill is rejected by the controller, not by ad-hoc
	// checks, so it surfaces as a ValidationError.
	err := run("add", "Addition", "9-9", "70", "--date", "2026-03-01")
	require.Error(t, err)
	var verr *session.ValidationError
	assert.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)

	// A non-positive time never reaches the store.
	err = run("add", "Addition", "5-1", "0", "--date", "2026-03-01")
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)

	loaded, err := store.NewCSV(csvPath).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded, "rejected adds must not write rows")

	// Addition 5-1 does not track mistakes; the controller drops the
	// flag exactly as the TUI save path does.
	err = run("add", "Addition", "5-1", "72.5", "--date", "2026-03-01", "--mistakes", "2")
	require.NoError(t, err)

	loaded, err = store.NewCSV(csvPath).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Addition", loaded[0].Subject)
	assert.Equal(t, "5-1", loaded[0].Level)
	assert.Equal(t, 72.5, loaded[0].Seconds)
	assert.Nil(t, loaded[0].Mistakes, "untracked mistakes must be dropped")
	assert.Equal(t, "2026-03-01", loaded[0].Date.Format("2006-01-02"))
}

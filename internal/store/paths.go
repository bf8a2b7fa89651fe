package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDBPath resolves the SQLite database path in priority order:
// 1. KIROKU_DB environment variable
// 2. $XDG_DATA_HOME/kiroku/kiroku.db
// 3. ~/.local/share/kiroku/kiroku.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("KIROKU_DB"); p != "" {
		return p, EnsureDir(p)
	}
	p, err := dataPath("kiroku.db")
	if err != nil {
		return "", err
	}
	return p, EnsureDir(p)
}

// DefaultCSVPath resolves the CSV records path, honoring KIROKU_CSV.
func DefaultCSVPath() (string, error) {
	if p := os.Getenv("KIROKU_CSV"); p != "" {
		return p, EnsureDir(p)
	}
	p, err := dataPath("records.csv")
	if err != nil {
		return "", err
	}
	return p, EnsureDir(p)
}

func dataPath(name string) (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "kiroku", name), nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

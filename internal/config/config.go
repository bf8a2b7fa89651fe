// Package config loads the TOML configuration file and resolves
// defaults and XDG paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig mirrors the TOML file. Pointer fields distinguish
// "absent" from zero values so defaults only fill real gaps.
type FileConfig struct {
	Store   StoreConfig   `toml:"store"`
	Timer   TimerConfig   `toml:"timer"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`
}

// StoreConfig selects and locates the record store backend.
type StoreConfig struct {
	Backend      *string `toml:"backend"` // "sqlite" (default) or "csv"
	DBPath       *string `toml:"db-path"`
	CSVPath      *string `toml:"csv-path"`
	CacheTTLSecs *int    `toml:"cache-ttl-secs"`
}

// TimerConfig controls the pre-start countdown.
type TimerConfig struct {
	Countdown     *bool `toml:"countdown"`
	CountdownSecs *int  `toml:"countdown-secs"`
}

// CatalogConfig optionally replaces the embedded drill catalog.
type CatalogConfig struct {
	Path *string `toml:"path"`
}

// LogConfig controls the debug log file.
type LogConfig struct {
	Enabled *bool   `toml:"enabled"`
	Path    *string `toml:"path"`
}

// Settings is the fully resolved configuration.
type Settings struct {
	StoreBackend   string
	DBPath         string // empty means the default data path
	CSVPath        string
	CacheTTLSecs   int
	CountdownTicks int // 0 when the countdown is disabled
	CatalogPath    string
	LogEnabled     bool
	LogPath        string
}

const (
	BackendSQLite = "sqlite"
	BackendCSV    = "csv"

	defaultCacheTTLSecs   = 60
	defaultCountdownTicks = 3
)

// Load reads the TOML config at path. A missing file is not an error:
// defaults apply.
func Load(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Resolve applies defaults to the file config and validates the
// backend choice.
func (c FileConfig) Resolve() (Settings, error) {
	s := Settings{
		StoreBackend:   BackendSQLite,
		CacheTTLSecs:   defaultCacheTTLSecs,
		CountdownTicks: defaultCountdownTicks,
		LogEnabled:     false,
	}

	if c.Store.Backend != nil {
		s.StoreBackend = *c.Store.Backend
	}
	switch s.StoreBackend {
	case BackendSQLite, BackendCSV:
	default:
		return Settings{}, fmt.Errorf("unknown store backend %q (want %q or %q)",
			s.StoreBackend, BackendSQLite, BackendCSV)
	}

	if c.Store.DBPath != nil {
		s.DBPath = *c.Store.DBPath
	}
	if c.Store.CSVPath != nil {
		s.CSVPath = *c.Store.CSVPath
	}
	if c.Store.CacheTTLSecs != nil {
		if *c.Store.CacheTTLSecs < 0 {
			return Settings{}, fmt.Errorf("cache-ttl-secs must be non-negative, got %d", *c.Store.CacheTTLSecs)
		}
		s.CacheTTLSecs = *c.Store.CacheTTLSecs
	}

	if c.Timer.CountdownSecs != nil {
		if *c.Timer.CountdownSecs < 0 {
			return Settings{}, fmt.Errorf("countdown-secs must be non-negative, got %d", *c.Timer.CountdownSecs)
		}
		s.CountdownTicks = *c.Timer.CountdownSecs
	}
	if c.Timer.Countdown != nil && !*c.Timer.Countdown {
		s.CountdownTicks = 0
	}

	if c.Catalog.Path != nil {
		s.CatalogPath = *c.Catalog.Path
	}

	if c.Log.Enabled != nil {
		s.LogEnabled = *c.Log.Enabled
	}
	if c.Log.Path != nil {
		s.LogPath = *c.Log.Path
	}
	if s.LogEnabled && s.LogPath == "" {
		s.LogPath = DefaultLogPath()
	}

	return s, nil
}

// XDGConfigHome returns the XDG config home or its fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGStateHome returns the XDG state home or its fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultConfigPath returns the default TOML config location.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "kiroku", "config.toml")
}

// DefaultLogPath returns the default debug log location.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), "kiroku", "kiroku.log")
}

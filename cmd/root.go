package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ksuda/kiroku/internal/app"
	"github.com/ksuda/kiroku/internal/catalog"
	"github.com/ksuda/kiroku/internal/config"
	"github.com/ksuda/kiroku/internal/logging"
	"github.com/ksuda/kiroku/internal/record"
	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "kiroku",
	Short: "Practice drill timer and record keeper",
	Long:  "Kiroku — terminal stopwatch for timed practice drills with per-drill targets and history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		return app.Run(app.Options{Controller: deps.Controller})
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to TOML config file (default: XDG config dir)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides KIROKU_DB env var)")
	rootCmd.PersistentFlags().String("csv", "", "Path to CSV record file (selects the csv backend)")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a custom drill catalog (JSON)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// deps is the wiring shared by the TUI and the subcommands.
type deps struct {
	Settings   config.Settings
	Catalog    *catalog.Catalog
	Store      record.Store
	Controller *session.Controller
	Log        *zap.Logger

	closers []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}

// buildDeps resolves configuration and opens the catalog, store, log,
// and session controller. Flags win over the config file, which wins
// over environment variables and XDG defaults.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	fileCfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	settings, err := fileCfg.Resolve()
	if err != nil {
		return nil, err
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		settings.StoreBackend = config.BackendSQLite
		settings.DBPath = p
	}
	if p, _ := cmd.Flags().GetString("csv"); p != "" {
		settings.StoreBackend = config.BackendCSV
		settings.CSVPath = p
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		settings.CatalogPath = p
	}

	d := &deps{Settings: settings}

	d.Catalog, err = loadCatalog(settings)
	if err != nil {
		return nil, err
	}

	d.Store, err = openStore(settings, d)
	if err != nil {
		return nil, err
	}

	d.Log, err = openLog(settings)
	if err != nil {
		return nil, err
	}

	d.Controller = session.NewController(d.Catalog, d.Store, settings.CountdownTicks,
		session.WithLogger(d.Log))
	return d, nil
}

func loadCatalog(s config.Settings) (*catalog.Catalog, error) {
	if s.CatalogPath != "" {
		cat, err := catalog.LoadFile(s.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return cat, nil
	}
	return catalog.Default()
}

// openStore builds the configured backend wrapped in the read cache.
func openStore(s config.Settings, d *deps) (record.Store, error) {
	var (
		inner record.Store
		err   error
	)

	switch s.StoreBackend {
	case config.BackendCSV:
		path := s.CSVPath
		if path == "" {
			path, err = store.DefaultCSVPath()
			if err != nil {
				return nil, fmt.Errorf("resolve csv path: %w", err)
			}
		} else if err := store.EnsureDir(path); err != nil {
			return nil, err
		}
		inner = store.NewCSV(path)

	default:
		path := s.DBPath
		if path == "" {
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve db path: %w", err)
			}
		} else if err := store.EnsureDir(path); err != nil {
			return nil, err
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		inner = db
	}

	ttl := time.Duration(s.CacheTTLSecs) * time.Second
	if ttl <= 0 {
		return inner, nil
	}
	return record.NewCachedStore(inner, ttl), nil
}

func openLog(s config.Settings) (*zap.Logger, error) {
	if !s.LogEnabled {
		return zap.NewNop(), nil
	}
	if err := store.EnsureDir(s.LogPath); err != nil {
		return nil, err
	}
	log, err := logging.New(s.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return log, nil
}

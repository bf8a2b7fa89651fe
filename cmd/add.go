package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ksuda/kiroku/internal/session"
)

// addCmd appends a record without the TUI, for backfilling sessions
// that were timed on paper. It drives the same controller the TUI
// uses, so drill lookup, variant and value checks, and the
// mistakes-drop rule cannot drift between the two paths.
var addCmd = &cobra.Command{
	Use:   "add <subject> <level> <seconds>",
	Short: "Record a practice time from the command line",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		subject, level := args[0], args[1]
		var seconds float64
		if _, err := fmt.Sscanf(args[2], "%f", &seconds); err != nil {
			return fmt.Errorf("seconds %q is not a number", args[2])
		}

		date := time.Now()
		if d, _ := cmd.Flags().GetString("date"); d != "" {
			date, err = time.Parse("2006-01-02", d)
			if err != nil {
				return fmt.Errorf("date %q: want YYYY-MM-DD", d)
			}
		}

		var mistakes *int
		if cmd.Flags().Changed("mistakes") {
			n, _ := cmd.Flags().GetInt("mistakes")
			mistakes = &n
		}

		// A dedicated controller with the record date as its clock;
		// no countdown since there is nothing to time.
		ctrl := session.NewController(deps.Catalog, deps.Store, 0,
			session.WithLogger(deps.Log),
			session.WithClock(func() time.Time { return date }))

		variant, _ := cmd.Flags().GetString("variant")
		if err := ctrl.GoToDrill(subject, level, variant); err != nil {
			return err
		}
		if _, err := ctrl.SaveMeasurement(cmd.Context(), seconds, mistakes); err != nil {
			return err
		}

		fmt.Printf("recorded %s %s: %.1fs\n", subject, level, seconds)
		return nil
	},
}

func init() {
	addCmd.Flags().String("variant", "", "Worksheet variant name")
	addCmd.Flags().Int("mistakes", 0, "Mistake count (ignored for drills that do not track them)")
	addCmd.Flags().String("date", "", "Attempt date as YYYY-MM-DD (default: today)")
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats [subject level]",
	Short: "Show practice history",
	Long: "With no arguments, prints an aggregate table for every drill.\n" +
		"With a subject and level, plots the recent trend for that drill.",
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx := cmd.Context()
		defer func() {
			if warn := deps.Controller.StoreWarning(); warn != "" {
				fmt.Fprintln(os.Stderr, "warning:", warn)
			}
		}()

		if len(args) < 2 {
			subject := ""
			if len(args) == 1 {
				subject = args[0]
			}
			return statsTable(ctx, deps, subject)
		}
		n, _ := cmd.Flags().GetInt("last")
		return statsTrend(ctx, deps, args[0], args[1], n)
	},
}

// statsTable prints one aggregate row per drill, optionally filtered
// to a subject.
func statsTable(ctx context.Context, d *deps, subject string) error {
	ctrl := d.Controller
	fmt.Printf("%-14s %-6s %8s %8s %12s\n", "SUBJECT", "LEVEL", "BEST", "TIER", "ATTEMPTS")

	for _, e := range d.Catalog.Entries() {
		if subject != "" && e.Subject != subject {
			continue
		}
		best := "--"
		tier := ""
		if b, ok := ctrl.BestTime(ctx, e.Subject, e.Level); ok {
			best = fmt.Sprintf("%.1fs", b)
			tier = stats.TierMarker(b, e.TargetA, e.TargetB)
		}
		fmt.Printf("%-14s %-6s %8s %8s %12d\n",
			e.Subject, e.Level, best, tier, ctrl.AttemptCount(ctx, e.Subject, e.Level))
	}
	return nil
}

// statsTrend plots the recent attempts for one drill.
func statsTrend(ctx context.Context, d *deps, subject, level string, n int) error {
	entry, ok := d.Catalog.Lookup(subject, level)
	if !ok {
		return fmt.Errorf("unknown drill %s/%s", subject, level)
	}

	ctrl := d.Controller
	trend := ctrl.RecentTrend(ctx, subject, level, n)

	if best, ok := ctrl.BestTime(ctx, subject, level); ok {
		fmt.Printf("best     %.1fs %s\n", best, stats.TierMarker(best, entry.TargetA, entry.TargetB))
	}
	if last, ok := ctrl.LastAttemptDate(ctx, subject, level); ok {
		fmt.Printf("last     %s\n", last.Format("2006-01-02 15:04"))
	}
	fmt.Printf("attempts %d\n\n", ctrl.AttemptCount(ctx, subject, level))

	points := make([]stats.Point, 0, len(trend))
	for _, r := range trend {
		points = append(points, stats.Point{
			Label:   r.Date.Format("01-02"),
			Seconds: r.Seconds,
		})
	}

	title := fmt.Sprintf("%s %s — last %d attempts", subject, level, len(points))
	return stats.RenderTrend(os.Stdout, title, points, entry.TargetA, entry.TargetB, 0)
}

func init() {
	statsCmd.Flags().IntP("last", "n", session.DefaultTrendLength, "How many recent attempts to plot")
}

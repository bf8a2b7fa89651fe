// Package stats renders practice-history summaries for the terminal.
package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	minBarWidth          = 10
	defaultBarWidth      = 40
	terminalWidthBackup  = 80
	plotGutter           = 24 // date + time + marker columns
	markerTargetA        = "○"
	markerTargetB        = "◎"
	markerMissed         = " "
)

// Point is one attempt in a trend plot.
type Point struct {
	Label   string // usually the attempt date
	Seconds float64
}

// TierMarker returns the success-tier symbol for a time: ◎ when the
// strict target is met, ○ for the base target, blank otherwise.
// Non-positive targets disable their tier.
func TierMarker(seconds, targetA, targetB float64) string {
	switch {
	case targetB > 0 && seconds <= targetB:
		return markerTargetB
	case targetA > 0 && seconds <= targetA:
		return markerTargetA
	default:
		return markerMissed
	}
}

// RenderTrend writes a horizontal-bar plot of the attempts, oldest
// first, with one row per attempt and the tier marker at the end.
// width is the total terminal width; <= 0 auto-detects.
func RenderTrend(w io.Writer, title string, points []Point, targetA, targetB float64, width int) error {
	if len(points) == 0 {
		_, err := fmt.Fprintf(w, "%s\n  no records yet\n", title)
		return err
	}

	if width <= 0 {
		width = TerminalWidth()
	}
	barWidth := width - plotGutter
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	if barWidth > defaultBarWidth*2 {
		barWidth = defaultBarWidth * 2
	}

	maxSecs := 0.0
	for _, p := range points {
		if p.Seconds > maxSecs {
			maxSecs = p.Seconds
		}
	}
	if targetA > maxSecs {
		maxSecs = targetA
	}
	if maxSecs <= 0 {
		maxSecs = 1
	}

	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, p := range points {
		filled := int(p.Seconds / maxSecs * float64(barWidth))
		if filled > barWidth {
			filled = barWidth
		}
		if filled < 1 {
			filled = 1
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("·", barWidth-filled)
		marker := TierMarker(p.Seconds, targetA, targetB)
		if _, err := fmt.Fprintf(w, "  %-11s %7.1fs %s %s\n", p.Label, p.Seconds, bar, marker); err != nil {
			return err
		}
	}

	if targetA > 0 && targetB > 0 {
		_, err := fmt.Fprintf(w, "  targets: %s %.0fs   %s %.0fs\n", markerTargetA, targetA, markerTargetB, targetB)
		return err
	}
	return nil
}

// TerminalWidth returns the stdout width, falling back to 80 columns
// when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

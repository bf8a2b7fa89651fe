package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/ksuda/kiroku/internal/ui/theme"
)

// TargetBar shows elapsed time against the drill targets. The fill
// stays green while inside the higher tier, amber inside the lower
// tier, and red once the elapsed time passes target A.
type TargetBar struct {
	Label   string
	Elapsed float64
	TargetA float64 // lower tier, upper bound of the bar
	TargetB float64 // higher tier
	Width   int
}

// NewTargetBar creates a bar scaled so that target A sits at the right edge.
func NewTargetBar(label string, elapsed, targetA, targetB float64, width int) TargetBar {
	return TargetBar{
		Label:   label,
		Elapsed: elapsed,
		TargetA: targetA,
		TargetB: targetB,
		Width:   width,
	}
}

// View renders the bar.
func (b TargetBar) View() string {
	var result string

	if b.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(b.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	suffixWidth := 8 // " 123.4s"

	barWidth := b.Width - labelWidth - suffixWidth
	if barWidth < 4 {
		barWidth = 4
	}

	percent := 0.0
	if b.TargetA > 0 {
		percent = b.Elapsed / b.TargetA
	}

	filled := int(float64(barWidth) * percent)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	fill := theme.Success
	switch {
	case b.Elapsed > b.TargetA:
		fill = theme.Error
	case b.Elapsed > b.TargetB:
		fill = theme.Accent
	}

	filledStr := lipgloss.NewStyle().
		Background(fill).
		Render(strings.Repeat(" ", filled))

	emptyStr := lipgloss.NewStyle().
		Background(theme.Border).
		Render(strings.Repeat(" ", empty))

	result += filledStr + emptyStr

	result += lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf(" %6.1fs", b.Elapsed))

	return result
}

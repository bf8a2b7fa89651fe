package overview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/ksuda/kiroku/internal/favorites"
	"github.com/ksuda/kiroku/internal/router"
	"github.com/ksuda/kiroku/internal/screen"
	"github.com/ksuda/kiroku/internal/screens/drill"
	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/ui/layout"
	"github.com/ksuda/kiroku/internal/ui/theme"
)

// rowStats holds the per-drill aggregates shown in the list.
type rowStats struct {
	Best     float64
	HasBest  bool
	Last     time.Time
	HasLast  bool
	Attempts int
}

type statsLoadedMsg struct {
	Stats   map[string]rowStats // keyed subject + "/" + level
	Warning string
}

// OverviewScreen lists all drills with their aggregates, pinned
// favorites first.
type OverviewScreen struct {
	ctrl     *session.Controller
	selected int
	stats    map[string]rowStats
	loaded   bool
	warning  string // store degradation, shown as a banner
	notice   string // transient feedback (favorites at capacity)
}

var _ screen.Screen = (*OverviewScreen)(nil)
var _ screen.KeyHintProvider = (*OverviewScreen)(nil)

// New creates the overview screen.
func New(ctrl *session.Controller) *OverviewScreen {
	return &OverviewScreen{ctrl: ctrl}
}

func (s *OverviewScreen) Init() tea.Cmd {
	return s.loadStats
}

func (s *OverviewScreen) loadStats() tea.Msg {
	ctx := context.Background()

	stats := make(map[string]rowStats)
	for _, e := range s.ctrl.Catalog().Entries() {
		var rs rowStats
		rs.Best, rs.HasBest = s.ctrl.BestTime(ctx, e.Subject, e.Level)
		rs.Last, rs.HasLast = s.ctrl.LastAttemptDate(ctx, e.Subject, e.Level)
		rs.Attempts = s.ctrl.AttemptCount(ctx, e.Subject, e.Level)
		stats[e.Subject+"/"+e.Level] = rs
	}

	return statsLoadedMsg{Stats: stats, Warning: s.ctrl.StoreWarning()}
}

func (s *OverviewScreen) Title() string {
	return "Overview"
}

func (s *OverviewScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Practice"},
		{Key: "F", Description: "Favorite"},
		{Key: "R", Description: "Refresh"},
		{Key: "Q", Description: "Quit"},
	}
}

// rows returns the display order: favorites pinned on top, then the
// remaining catalog entries in catalog order.
func (s *OverviewScreen) rows() []favorites.Entry {
	favs := s.ctrl.Favorites()
	rows := make([]favorites.Entry, 0, s.ctrl.Catalog().Len())
	rows = append(rows, favs...)
	for _, e := range s.ctrl.Catalog().Entries() {
		if !s.ctrl.IsFavorite(e.Subject, e.Level) {
			rows = append(rows, favorites.Entry{Subject: e.Subject, Level: e.Level})
		}
	}
	return rows
}

func (s *OverviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		s.stats = msg.Stats
		s.warning = msg.Warning
		s.loaded = true
		return s, nil

	case screen.RefreshMsg:
		return s, s.loadStats

	case tea.KeyMsg:
		rows := s.rows()
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(rows)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			if s.selected >= len(rows) {
				return s, nil
			}
			row := rows[s.selected]
			if err := s.ctrl.GoToDrill(row.Subject, row.Level, ""); err != nil {
				s.notice = err.Error()
				return s, nil
			}
			next := drill.New(s.ctrl)
			return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
		case "f":
			if s.selected >= len(rows) {
				return s, nil
			}
			row := rows[s.selected]
			added, err := s.ctrl.ToggleFavorite(row.Subject, row.Level)
			switch {
			case errors.Is(err, favorites.ErrCapacityExceeded):
				s.notice = fmt.Sprintf("favorites are full (max %d) — unpin one first", favorites.MaxEntries)
			case added:
				s.notice = ""
				s.selected = 0 // the row jumps to the pinned section
			default:
				s.notice = ""
			}
			return s, nil
		case "r":
			s.ctrl.Refresh()
			return s, s.loadStats
		case "q":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *OverviewScreen) View(width, height int) string {
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading records...")
	}

	var b strings.Builder
	b.WriteString("\n")

	if s.warning != "" {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.Warn.Render("⚠ "+s.warning+" — showing empty history, press R to retry")))
		b.WriteString("\n\n")
	}

	for i, row := range s.rows() {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		pin := "  "
		if s.ctrl.IsFavorite(row.Subject, row.Level) {
			pin = "★ "
		}

		rs := s.stats[row.Subject+"/"+row.Level]
		best := "    --"
		if rs.HasBest {
			best = fmt.Sprintf("%5.1fs", rs.Best)
		}
		last := "never"
		if rs.HasLast {
			last = rs.Last.Format("Jan 02")
		}

		line := fmt.Sprintf("%s%s%-14s %-6s  best %s  last %-6s  %3d attempts",
			prefix, pin, row.Subject, row.Level, best, last, rs.Attempts)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}

	if s.notice != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.Warn.Render(s.notice)))
		b.WriteString("\n")
	}

	return b.String()
}

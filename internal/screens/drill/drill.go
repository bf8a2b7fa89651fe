package drill

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/ksuda/kiroku/internal/catalog"
	"github.com/ksuda/kiroku/internal/record"
	"github.com/ksuda/kiroku/internal/router"
	"github.com/ksuda/kiroku/internal/screen"
	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/stats"
	"github.com/ksuda/kiroku/internal/timer"
	"github.com/ksuda/kiroku/internal/ui/components"
	"github.com/ksuda/kiroku/internal/ui/layout"
	"github.com/ksuda/kiroku/internal/ui/theme"
)

const (
	countdownInterval = time.Second
	runInterval       = 100 * time.Millisecond
)

type countdownTickMsg time.Time

type runTickMsg time.Time

type trendLoadedMsg struct {
	Trend []record.Record
}

const (
	focusTime = iota
	focusMistakes
)

// DrillScreen runs one practice drill: countdown, stopwatch, and the
// save form for the measured time.
type DrillScreen struct {
	ctrl  *session.Controller
	entry *catalog.Entry

	// variant cycle ring; index 0 is the base worksheet
	variants   []string
	variantIdx int

	trend  []record.Record
	loaded bool

	editing       bool
	goFlash       bool
	measured      float64
	timeInput     components.TextInput
	mistakesInput components.TextInput
	focus         int

	errMsg string
}

var _ screen.Screen = (*DrillScreen)(nil)
var _ screen.KeyHintProvider = (*DrillScreen)(nil)

// New creates the drill screen for the controller's active selection.
// The caller must have activated a drill via GoToDrill first.
func New(ctrl *session.Controller) *DrillScreen {
	sel := ctrl.Selection()
	entry, _ := ctrl.Catalog().Lookup(sel.Subject, sel.Level)

	variants := []string{""}
	for _, v := range entry.Variants {
		variants = append(variants, v.Name)
	}

	s := &DrillScreen{
		ctrl:     ctrl,
		entry:    entry,
		variants: variants,
	}
	for i, name := range variants {
		if name == sel.Variant {
			s.variantIdx = i
		}
	}
	return s
}

func (s *DrillScreen) Init() tea.Cmd {
	return s.loadTrend
}

func (s *DrillScreen) loadTrend() tea.Msg {
	trend := s.ctrl.RecentTrend(context.Background(), s.entry.Subject, s.entry.Level, session.DefaultTrendLength)
	return trendLoadedMsg{Trend: trend}
}

func (s *DrillScreen) Title() string {
	title := fmt.Sprintf("%s %s", s.entry.Subject, s.entry.Level)
	if v := s.variants[s.variantIdx]; v != "" {
		title += " (" + v + ")"
	}
	return title
}

func (s *DrillScreen) KeyHints() []layout.KeyHint {
	if s.editing {
		hints := []layout.KeyHint{
			{Key: "Enter", Description: "Save"},
		}
		if s.entry.TracksMistakes {
			hints = append(hints, layout.KeyHint{Key: "Tab", Description: "Next field"})
		}
		return append(hints, layout.KeyHint{Key: "Esc", Description: "Discard"})
	}

	switch s.ctrl.Timer().Mode() {
	case timer.ModeRunning:
		return []layout.KeyHint{
			{Key: "Space", Description: "Stop"},
		}
	case timer.ModeCountingDown:
		return nil
	default:
		hints := []layout.KeyHint{
			{Key: "Space", Description: "Start"},
		}
		if len(s.variants) > 1 {
			hints = append(hints, layout.KeyHint{Key: "V", Description: "Variant"})
		}
		return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
}

func scheduleCountdown() tea.Cmd {
	return tea.Tick(countdownInterval, func(t time.Time) tea.Msg { return countdownTickMsg(t) })
}

func scheduleRun() tea.Cmd {
	return tea.Tick(runInterval, func(t time.Time) tea.Msg { return runTickMsg(t) })
}

func (s *DrillScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case trendLoadedMsg:
		s.trend = msg.Trend
		s.loaded = true
		return s, nil

	case countdownTickMsg:
		t := s.ctrl.Timer()
		if t.Mode() != timer.ModeCountingDown {
			return s, nil
		}
		t.Tick()
		if t.Mode() == timer.ModeCountingDown {
			return s, scheduleCountdown()
		}
		s.goFlash = true
		return s, scheduleRun()

	case runTickMsg:
		if s.goFlash && s.ctrl.Timer().Reading() >= time.Second {
			s.goFlash = false
		}
		if s.ctrl.Timer().Mode() == timer.ModeRunning {
			return s, scheduleRun()
		}
		return s, nil

	case tea.KeyMsg:
		if s.editing {
			return s.updateEditing(msg)
		}
		return s.updateIdle(msg)
	}
	return s, nil
}

func (s *DrillScreen) updateIdle(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	t := s.ctrl.Timer()
	switch msg.String() {
	case "esc":
		s.ctrl.GoToOverview()
		return s, func() tea.Msg { return router.PopScreenMsg{} }

	case " ", "space":
		switch t.Mode() {
		case timer.ModeRunning:
			s.ctrl.Stop()
			s.beginEditing()
			return s, nil
		case timer.ModeCountingDown:
			return s, nil
		default:
			s.ctrl.Start()
			s.errMsg = ""
			if t.Mode() == timer.ModeCountingDown {
				return s, scheduleCountdown()
			}
			return s, scheduleRun()
		}

	case "v":
		if t.Mode() != timer.ModeIdle || len(s.variants) < 2 {
			return s, nil
		}
		next := (s.variantIdx + 1) % len(s.variants)
		if err := s.ctrl.GoToDrill(s.entry.Subject, s.entry.Level, s.variants[next]); err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		s.variantIdx = next
		return s, nil
	}
	return s, nil
}

func (s *DrillScreen) beginEditing() {
	s.editing = true
	s.errMsg = ""
	s.measured = s.ctrl.Timer().Elapsed().Seconds()

	s.timeInput = components.NewTextInput("seconds", components.ModeDecimal, 8)
	s.timeInput.SetValue(fmt.Sprintf("%.1f", s.measured))

	if s.entry.TracksMistakes {
		s.mistakesInput = components.NewTextInput("mistakes", components.ModeInteger, 3)
		s.mistakesInput.Model.Blur()
	}
	s.focus = focusTime
}

func (s *DrillScreen) updateEditing(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// discard the measurement, back to the idle drill view
		s.editing = false
		s.errMsg = ""
		s.ctrl.Reset()
		return s, nil

	case "tab":
		if s.entry.TracksMistakes {
			if s.focus == focusTime {
				s.focus = focusMistakes
				s.timeInput.Model.Blur()
				return s, s.mistakesInput.Model.Focus()
			}
			s.focus = focusTime
			s.mistakesInput.Model.Blur()
			return s, s.timeInput.Model.Focus()
		}
		return s, nil

	case "enter":
		return s.save()
	}

	var cmd tea.Cmd
	if s.focus == focusMistakes {
		s.mistakesInput, cmd = s.mistakesInput.Update(msg)
	} else {
		s.timeInput, cmd = s.timeInput.Update(msg)
	}
	return s, cmd
}

func (s *DrillScreen) save() (screen.Screen, tea.Cmd) {
	secs, err := s.timeInput.FloatValue()
	if err != nil || secs <= 0 {
		s.timeInput.Submit(false)
		s.errMsg = "time must be a positive number of seconds"
		return s, nil
	}

	var mistakes *int
	if s.entry.TracksMistakes && s.mistakesInput.Value() != "" {
		n, err := s.mistakesInput.IntValue()
		if err != nil || n < 0 {
			s.mistakesInput.Submit(false)
			s.errMsg = "mistakes must be a non-negative count"
			return s, nil
		}
		mistakes = &n
	}

	ctx := context.Background()
	if math.Abs(secs-s.measured) < 0.05 {
		_, err = s.ctrl.SaveCurrentMeasurement(ctx, mistakes)
	} else {
		_, err = s.ctrl.SaveMeasurement(ctx, secs, mistakes)
	}

	if err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			s.errMsg = verr.Reason
		} else {
			s.errMsg = err.Error()
		}
		return s, nil
	}

	// controller already returned to the overview; leave the screen
	// and tell it to re-read the dataset
	return s, tea.Batch(
		func() tea.Msg { return router.PopScreenMsg{} },
		func() tea.Msg { return screen.RefreshMsg{} },
	)
}

func (s *DrillScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	center := func(str string) {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, str))
		b.WriteString("\n")
	}

	targets := fmt.Sprintf("◎ ≤ %.0fs    ○ ≤ %.0fs", s.entry.TargetB, s.entry.TargetA)
	center(theme.Subtitle.Render(targets))

	if q, a := s.links(); q != "" || a != "" {
		center(theme.Hint.Render("questions: " + q))
		center(theme.Hint.Render("answers:   " + a))
	}
	b.WriteString("\n")

	t := s.ctrl.Timer()
	switch {
	case s.editing:
		s.viewEditing(&b, width)
	case t.Mode() == timer.ModeCountingDown:
		center(theme.Countdown.Render(fmt.Sprintf("\n  %d  \n", t.CountdownRemaining())))
	case t.Mode() == timer.ModeRunning && s.goFlash:
		center(theme.Countdown.Render("\n  GO!  \n"))
	case t.Mode() == timer.ModeRunning:
		center(theme.TimerRunning.Render(fmt.Sprintf("%.1fs", t.Reading().Seconds())))
		b.WriteString("\n")
		bar := components.NewTargetBar("", t.Reading().Seconds(), s.entry.TargetA, s.entry.TargetB, width*2/3)
		center(bar.View())
	default:
		center(theme.TimerIdle.Render("press space to start"))
	}

	if s.errMsg != "" {
		b.WriteString("\n")
		center(theme.Bad.Render(s.errMsg))
	}

	b.WriteString("\n")
	s.viewTrend(&b, width)
	return b.String()
}

func (s *DrillScreen) viewEditing(b *strings.Builder, width int) {
	center := func(str string) {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, str))
		b.WriteString("\n")
	}

	center(theme.TimerStopped.Render(fmt.Sprintf("measured %.1fs", s.measured)))
	b.WriteString("\n")
	center(theme.Body.Render("time (s): ") + s.timeInput.View())
	if s.entry.TracksMistakes {
		center(theme.Body.Render("mistakes: ") + s.mistakesInput.View())
	}
}

func (s *DrillScreen) viewTrend(b *strings.Builder, width int) {
	if !s.loaded || len(s.trend) == 0 {
		return
	}

	center := func(str string) {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, str))
		b.WriteString("\n")
	}

	center(theme.Subtitle.Render(fmt.Sprintf("last %d attempts", len(s.trend))))
	for _, r := range s.trend {
		marker := stats.TierMarker(r.Seconds, s.entry.TargetA, s.entry.TargetB)
		line := fmt.Sprintf("%s  %6.1fs  %s", r.Date.Format("Jan 02 15:04"), r.Seconds, marker)
		center(theme.Body.Render(line))
	}
}

// links returns the worksheet links for the active variant, falling
// back to the entry-level links.
func (s *DrillScreen) links() (question, answer string) {
	question, answer = s.entry.QuestionLink, s.entry.AnswerLink
	name := s.variants[s.variantIdx]
	if name == "" {
		return question, answer
	}
	for _, v := range s.entry.Variants {
		if v.Name == name {
			if v.QuestionLink != "" {
				question = v.QuestionLink
			}
			if v.AnswerLink != "" {
				answer = v.AnswerLink
			}
			return question, answer
		}
	}
	return question, answer
}

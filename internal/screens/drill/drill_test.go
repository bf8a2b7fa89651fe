package drill

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/ksuda/kiroku/internal/catalog"
	"github.com/ksuda/kiroku/internal/record"
	"github.com/ksuda/kiroku/internal/router"
	"github.com/ksuda/kiroku/internal/screen"
	"github.com/ksuda/kiroku/internal/session"
	"github.com/ksuda/kiroku/internal/timer"
)

const testCatalogDoc = `{
  "subjects": [
    {
      "name": "Addition",
      "levels": [
        {"level": "4-1", "target_a": 80, "target_b": 50,
         "question_link": "https://example.com/q/add-4-1",
         "answer_link": "https://example.com/a/add-4-1",
         "tracks_mistakes": true,
         "variants": [
           {"name": "A", "question_link": "https://example.com/q/add-4-1-a"},
           {"name": "B"}
         ]}
      ]
    }
  ]
}`

type memStore struct {
	records   []record.Record
	appendErr error
}

func (m *memStore) Load(context.Context) ([]record.Record, error) {
	return m.records, nil
}

func (m *memStore) Append(_ context.Context, r record.Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) Invalidate() {}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestScreen(t *testing.T, st record.Store, countdownTicks int) (*DrillScreen, *session.Controller, *fakeClock) {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalogDoc))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	ctrl := session.NewController(cat, st, countdownTicks,
		session.WithClock(clk.now),
		session.WithTimer(timer.New(countdownTicks, timer.WithClock(clk.now))),
	)
	if err := ctrl.GoToDrill("Addition", "4-1", ""); err != nil {
		t.Fatalf("go to drill: %v", err)
	}
	return New(ctrl), ctrl, clk
}

func space() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: ' '}
}

func typeString(t *testing.T, s *DrillScreen, text string) {
	t.Helper()
	for _, r := range text {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func TestMeasureAndSave(t *testing.T) {
	st := &memStore{}
	s, ctrl, clk := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	s.Update(space())
	if ctrl.Timer().Mode() != timer.ModeRunning {
		t.Fatal("space should start the stopwatch")
	}

	clk.advance(12300 * time.Millisecond)
	s.Update(space())
	if !s.editing {
		t.Fatal("stopping should open the save form")
	}
	if s.timeInput.Value() != "12.3" {
		t.Errorf("time input should be prefilled with the measurement, got %q", s.timeInput.Value())
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("save should produce navigation commands")
	}

	if len(st.records) != 1 {
		t.Fatalf("expected 1 record appended, got %d", len(st.records))
	}
	if st.records[0].Seconds != 12.3 {
		t.Errorf("expected 12.3s saved, got %v", st.records[0].Seconds)
	}
	if ctrl.Selection().Screen != session.ScreenOverview {
		t.Error("saving should return the session to the overview")
	}

	// the batched command should pop the screen and request a refresh
	var sawPop, sawRefresh bool
	collect(cmd, func(msg tea.Msg) {
		switch msg.(type) {
		case router.PopScreenMsg:
			sawPop = true
		case screen.RefreshMsg:
			sawRefresh = true
		}
	})
	if !sawPop || !sawRefresh {
		t.Errorf("expected pop + refresh, got pop=%v refresh=%v", sawPop, sawRefresh)
	}
}

func TestManualTimeOverride(t *testing.T) {
	st := &memStore{}
	s, _, clk := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	s.Update(space())
	clk.advance(45 * time.Second)
	s.Update(space())

	// replace the measured value by hand
	s.timeInput.SetValue("")
	typeString(t, s, "47.5")

	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(st.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(st.records))
	}
	if st.records[0].Seconds != 47.5 {
		t.Errorf("expected the overridden 47.5s, got %v", st.records[0].Seconds)
	}
}

func TestMistakesSavedWhenTracked(t *testing.T) {
	st := &memStore{}
	s, _, clk := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	s.Update(space())
	clk.advance(30 * time.Second)
	s.Update(space())

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	typeString(t, s, "2")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	if len(st.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(st.records))
	}
	if st.records[0].Mistakes == nil || *st.records[0].Mistakes != 2 {
		t.Errorf("expected mistakes=2, got %v", st.records[0].Mistakes)
	}
}

func TestCountdownDelaysTheRun(t *testing.T) {
	s, ctrl, clk := newTestScreen(t, &memStore{}, 3)
	s.Update(s.Init()())

	_, cmd := s.Update(space())
	if ctrl.Timer().Mode() != timer.ModeCountingDown {
		t.Fatal("start should enter the countdown first")
	}
	if cmd == nil {
		t.Fatal("countdown should schedule ticks")
	}

	// three countdown ticks, each a second apart
	for i := 0; i < 3; i++ {
		clk.advance(time.Second)
		s.Update(countdownTickMsg(clk.t))
	}
	if ctrl.Timer().Mode() != timer.ModeRunning {
		t.Fatalf("after 3 ticks the stopwatch should run, mode=%v", ctrl.Timer().Mode())
	}

	clk.advance(20 * time.Second)
	s.Update(space())
	if got := ctrl.Timer().Elapsed().Seconds(); got != 20 {
		t.Errorf("countdown time must not count, elapsed=%v", got)
	}
}

func TestEscDiscardsTheMeasurement(t *testing.T) {
	st := &memStore{}
	s, ctrl, clk := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	s.Update(space())
	clk.advance(10 * time.Second)
	s.Update(space())

	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if s.editing {
		t.Error("esc should close the save form")
	}
	if ctrl.Timer().Mode() != timer.ModeIdle {
		t.Error("esc should reset the stopwatch")
	}
	if len(st.records) != 0 {
		t.Error("nothing should have been saved")
	}
}

func TestEscFromIdleReturnsToOverview(t *testing.T) {
	s, ctrl, _ := newTestScreen(t, &memStore{}, 0)
	s.Update(s.Init()())

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("esc should pop the screen")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Fatalf("expected PopScreenMsg, got %T", cmd())
	}
	if ctrl.Selection().Screen != session.ScreenOverview {
		t.Error("selection should be cleared")
	}
}

func TestVariantCycling(t *testing.T) {
	s, ctrl, _ := newTestScreen(t, &memStore{}, 0)
	s.Update(s.Init()())

	s.Update(tea.KeyPressMsg{Code: 'v'})
	if got := ctrl.Selection().Variant; got != "A" {
		t.Errorf("expected variant A, got %q", got)
	}
	q, _ := s.links()
	if q != "https://example.com/q/add-4-1-a" {
		t.Errorf("variant A should override the question link, got %q", q)
	}

	s.Update(tea.KeyPressMsg{Code: 'v'})
	if got := ctrl.Selection().Variant; got != "B" {
		t.Errorf("expected variant B, got %q", got)
	}
	q, _ = s.links()
	if q != "https://example.com/q/add-4-1" {
		t.Errorf("variant B has no links of its own, got %q", q)
	}

	s.Update(tea.KeyPressMsg{Code: 'v'})
	if got := ctrl.Selection().Variant; got != "" {
		t.Errorf("cycle should wrap back to the base worksheet, got %q", got)
	}
}

func TestStoreFailureStaysOnScreen(t *testing.T) {
	st := &memStore{appendErr: context.DeadlineExceeded}
	s, ctrl, clk := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	s.Update(space())
	clk.advance(15 * time.Second)
	s.Update(space())
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})

	if s.errMsg == "" {
		t.Error("a store failure should be shown inline")
	}
	if ctrl.Selection().Screen != session.ScreenDrill {
		t.Error("a store failure must not navigate away")
	}
}

func TestTrendShowsTierMarkers(t *testing.T) {
	st := &memStore{records: []record.Record{
		{Date: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), Subject: "Addition", Level: "4-1", Seconds: 45}, // under target B
		{Date: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), Subject: "Addition", Level: "4-1", Seconds: 70}, // under target A
	}}
	s, _, _ := newTestScreen(t, st, 0)
	s.Update(s.Init()())

	view := s.View(100, 40)
	if !strings.Contains(view, "◎") {
		t.Errorf("a sub-target-B time should show ◎, got:\n%s", view)
	}
	if !strings.Contains(view, "○") {
		t.Errorf("a sub-target-A time should show ○, got:\n%s", view)
	}
}

// collect runs a (possibly batched) command and hands every produced
// message to fn. Batches are unwrapped one level, which is all the
// screens produce.
func collect(cmd tea.Cmd, fn func(tea.Msg)) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			collect(c, fn)
		}
		return
	}
	fn(msg)
}

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksuda/kiroku/internal/catalog"
	"github.com/ksuda/kiroku/internal/favorites"
	"github.com/ksuda/kiroku/internal/record"
	"github.com/ksuda/kiroku/internal/timer"
)

const testCatalogDoc = `{
  "subjects": [
    {
      "name": "Addition",
      "levels": [
        {
          "level": "4-1",
          "target_a": 80,
          "target_b": 50,
          "question_link": "https://example.com/add/4-1/q.pdf",
          "answer_link": "https://example.com/add/4-1/a.pdf",
          "tracks_mistakes": true,
          "variants": [{"name": "A"}, {"name": "B"}]
        },
        {
          "level": "4-2",
          "target_a": 90,
          "target_b": 60,
          "question_link": "https://example.com/add/4-2/q.pdf",
          "answer_link": "https://example.com/add/4-2/a.pdf"
        },
        {
          "level": "5-1",
          "target_a": 100,
          "target_b": 70,
          "question_link": "https://example.com/add/5-1/q.pdf",
          "answer_link": "https://example.com/add/5-1/a.pdf"
        }
      ]
    },
    {
      "name": "Subtraction",
      "levels": [
        {
          "level": "4-1",
          "target_a": 85,
          "target_b": 55,
          "question_link": "https://example.com/sub/4-1/q.pdf",
          "answer_link": "https://example.com/sub/4-1/a.pdf"
        }
      ]
    }
  ]
}`

// fakeStore is an in-memory record.Store with failure injection.
type fakeStore struct {
	records   []record.Record
	appends   int
	loadErr   error
	appendErr error
}

func (f *fakeStore) Load(context.Context) ([]record.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]record.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) Append(_ context.Context, r record.Record) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends++
	f.records = append(f.records, r)
	return nil
}

func (f *fakeStore) Invalidate() {}

type fixture struct {
	ctrl  *Controller
	store *fakeStore
	clock *time.Time
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func newFixture(t *testing.T, countdownTicks int) *fixture {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalogDoc))
	require.NoError(t, err)

	clock := time.Date(2026, 4, 2, 17, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	st := &fakeStore{}
	ctrl := NewController(cat, st, countdownTicks,
		WithClock(now),
		WithTimer(timer.New(countdownTicks, timer.WithClock(now))),
	)
	return &fixture{ctrl: ctrl, store: st, clock: &clock}
}

func TestStartsOnOverview(t *testing.T) {
	f := newFixture(t, 0)
	sel := f.ctrl.Selection()
	assert.Equal(t, ScreenOverview, sel.Screen)
	assert.Empty(t, sel.Subject)
	assert.Empty(t, sel.Level)
	assert.NotEmpty(t, f.ctrl.ID())
}

func TestGoToDrillAndBack(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", "A"))
	sel := f.ctrl.Selection()
	assert.Equal(t, ScreenDrill, sel.Screen)
	assert.Equal(t, "Addition", sel.Subject)
	assert.Equal(t, "4-1", sel.Level)
	assert.Equal(t, "A", sel.Variant)

	// Leave a measurement behind, then navigate away and back.
	f.ctrl.Start()
	f.advance(5 * time.Second)
	f.ctrl.Stop()

	f.ctrl.GoToOverview()
	sel = f.ctrl.Selection()
	assert.Equal(t, ScreenOverview, sel.Screen)
	assert.Empty(t, sel.Subject)
	assert.Empty(t, sel.Level)
	assert.Empty(t, sel.Variant)

	// Re-entering a drill discards the stale measurement.
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-2", ""))
	assert.Equal(t, timer.ModeIdle, f.ctrl.Timer().Mode())
	assert.Zero(t, f.ctrl.Timer().Elapsed())
}

func TestGoToDrillRejectsUnknown(t *testing.T) {
	f := newFixture(t, 0)

	var verr *ValidationError
	err := f.ctrl.GoToDrill("Addition", "9-9", "")
	require.ErrorAs(t, err, &verr)

	err = f.ctrl.GoToDrill("Addition", "4-1", "Z")
	require.ErrorAs(t, err, &verr)

	// Failed navigation leaves the session on the overview.
	assert.Equal(t, ScreenOverview, f.ctrl.Selection().Screen)
}

// Scenario: measure 12.3s, save with one mistake, session returns to
// the overview and the record round-trips through the store.
func TestMeasureAndSave(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))
	f.ctrl.Start()
	f.advance(12300 * time.Millisecond)
	f.ctrl.Stop()

	mistakes := 1
	saved, err := f.ctrl.SaveCurrentMeasurement(ctx, &mistakes)
	require.NoError(t, err)

	assert.InDelta(t, 12.3, saved.Seconds, 0.001)
	require.NotNil(t, saved.Mistakes)
	assert.Equal(t, 1, *saved.Mistakes)
	assert.Equal(t, 1, f.store.appends)

	assert.Equal(t, ScreenOverview, f.ctrl.Selection().Screen)
	assert.Equal(t, timer.ModeIdle, f.ctrl.Timer().Mode())

	loaded := f.ctrl.Records(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Addition", loaded[0].Subject)
}

func TestSaveRequiresStoppedPositiveMeasurement(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))

	var verr *ValidationError

	// Idle: nothing measured.
	_, err := f.ctrl.SaveCurrentMeasurement(ctx, nil)
	require.ErrorAs(t, err, &verr)

	// Running: not stopped yet.
	f.ctrl.Start()
	f.advance(3 * time.Second)
	_, err = f.ctrl.SaveCurrentMeasurement(ctx, nil)
	require.ErrorAs(t, err, &verr)

	// Stopped instantly: elapsed is zero.
	f.ctrl.Reset()
	f.ctrl.Start()
	f.ctrl.Stop()
	_, err = f.ctrl.SaveCurrentMeasurement(ctx, nil)
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, f.store.appends, "no precondition failure may reach the store")
}

func TestSaveRequiresDrillSelection(t *testing.T) {
	f := newFixture(t, 0)

	f.ctrl.Start()
	f.advance(8 * time.Second)
	f.ctrl.Stop()

	var verr *ValidationError
	_, err := f.ctrl.SaveCurrentMeasurement(context.Background(), nil)
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.store.appends)
}

func TestSaveDropsMistakesWhenNotTracked(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// Addition 4-2 does not track mistakes.
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-2", ""))
	f.ctrl.Start()
	f.advance(10 * time.Second)
	f.ctrl.Stop()

	mistakes := 3
	saved, err := f.ctrl.SaveCurrentMeasurement(ctx, &mistakes)
	require.NoError(t, err)
	assert.Nil(t, saved.Mistakes)
}

func TestSaveManualOverride(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))

	saved, err := f.ctrl.SaveMeasurement(ctx, 59.5, nil)
	require.NoError(t, err)
	assert.Equal(t, 59.5, saved.Seconds)

	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))
	var verr *ValidationError
	_, err = f.ctrl.SaveMeasurement(ctx, 0, nil)
	require.ErrorAs(t, err, &verr)
	_, err = f.ctrl.SaveMeasurement(ctx, -4, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, f.store.appends)
}

func TestSaveStoreFailureKeepsSelection(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))

	f.ctrl.Start()
	f.advance(7 * time.Second)
	f.ctrl.Stop()

	f.store.appendErr = errors.New("store unreachable")
	_, err := f.ctrl.SaveCurrentMeasurement(ctx, nil)
	require.Error(t, err)

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr), "a store failure is not a validation error")

	// The measurement survives so the user can retry.
	assert.Equal(t, ScreenDrill, f.ctrl.Selection().Screen)
	assert.Equal(t, timer.ModeStopped, f.ctrl.Timer().Mode())
}

func TestToggleFavoriteSurface(t *testing.T) {
	f := newFixture(t, 0)

	added, err := f.ctrl.ToggleFavorite("Addition", "4-1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, f.ctrl.IsFavorite("Addition", "4-1"))

	_, _ = f.ctrl.ToggleFavorite("Addition", "4-2")
	_, _ = f.ctrl.ToggleFavorite("Addition", "5-1")

	_, err = f.ctrl.ToggleFavorite("Subtraction", "4-1")
	assert.ErrorIs(t, err, favorites.ErrCapacityExceeded)
	assert.Len(t, f.ctrl.Favorites(), 3)
}

func TestRecordsDegradeToEmptyWithWarning(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.store.loadErr = errors.New("sheet unreachable")
	got := f.ctrl.Records(ctx)
	assert.Empty(t, got)
	assert.Contains(t, f.ctrl.StoreWarning(), "unavailable")

	// Aggregations on the degraded dataset answer "no data".
	_, ok := f.ctrl.BestTime(ctx, "Addition", "4-1")
	assert.False(t, ok)
	assert.Zero(t, f.ctrl.AttemptCount(ctx, "Addition", "4-1"))

	// Recovery clears the warning.
	f.store.loadErr = nil
	f.ctrl.Refresh()
	_ = f.ctrl.Records(ctx)
	assert.Empty(t, f.ctrl.StoreWarning())
}

func seedRecords(f *fixture, subject, level string, seconds ...float64) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, s := range seconds {
		f.store.records = append(f.store.records, record.Record{
			Date:    base.Add(time.Duration(i) * 24 * time.Hour),
			Subject: subject,
			Level:   level,
			Seconds: s,
		})
	}
}

func TestAggregations(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	seedRecords(f, "Addition", "4-1", 90, 75, 81, 68.5)
	seedRecords(f, "Addition", "4-2", 120)

	best, ok := f.ctrl.BestTime(ctx, "Addition", "4-1")
	require.True(t, ok)
	assert.Equal(t, 68.5, best)

	last, ok := f.ctrl.LastAttemptDate(ctx, "Addition", "4-1")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), last)

	assert.Equal(t, 4, f.ctrl.AttemptCount(ctx, "Addition", "4-1"))
	assert.Equal(t, 1, f.ctrl.AttemptCount(ctx, "Addition", "4-2"))
	assert.Equal(t, 0, f.ctrl.AttemptCount(ctx, "Subtraction", "4-1"))
}

func TestRecentTrendTail(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	var seconds []float64
	for i := 0; i < 15; i++ {
		seconds = append(seconds, float64(100-i))
	}
	seedRecords(f, "Addition", "4-1", seconds...)

	trend := f.ctrl.RecentTrend(ctx, "Addition", "4-1", 0)
	require.Len(t, trend, DefaultTrendLength)
	// Ascending by date, ending at the most recent attempt.
	assert.Equal(t, 91.0, trend[0].Seconds)
	assert.Equal(t, 86.0, trend[len(trend)-1].Seconds)
	for i := 1; i < len(trend); i++ {
		assert.False(t, trend[i].Date.Before(trend[i-1].Date))
	}

	short := f.ctrl.RecentTrend(ctx, "Addition", "4-1", 3)
	assert.Len(t, short, 3)

	assert.Empty(t, f.ctrl.RecentTrend(ctx, "Division", "1-1", 10))
}

func TestCountdownDelaysMeasurement(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	require.NoError(t, f.ctrl.GoToDrill("Addition", "4-1", ""))

	f.ctrl.Start()
	assert.Equal(t, timer.ModeCountingDown, f.ctrl.Timer().Mode())

	for i := 0; i < 3; i++ {
		f.advance(time.Second)
		f.ctrl.Timer().Tick()
	}
	require.Equal(t, timer.ModeRunning, f.ctrl.Timer().Mode())

	f.advance(20 * time.Second)
	f.ctrl.Stop()

	saved, err := f.ctrl.SaveCurrentMeasurement(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, saved.Seconds, 0.001, "the countdown pause is not measured")
}

// flakyStore alternates between failing and succeeding loads, locking
// internally so concurrent callers only exercise the controller.
type flakyStore struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyStore) Load(context.Context) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls%2 == 0 {
		return nil, errors.New("store unreachable")
	}
	return nil, nil
}

func (f *flakyStore) Append(context.Context, record.Record) error { return nil }

func (f *flakyStore) Invalidate() {}

// The overview reloads its aggregates from command goroutines while
// the update loop reads the warning for the header; both touch the
// store warning, so hammer them concurrently for the race detector.
func TestConcurrentRecordsAndStoreWarning(t *testing.T) {
	cat, err := catalog.Load(strings.NewReader(testCatalogDoc))
	require.NoError(t, err)
	ctrl := NewController(cat, &flakyStore{}, 0)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ctrl.Records(ctx)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = ctrl.StoreWarning()
			}
		}()
	}
	wg.Wait()
}

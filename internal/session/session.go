// Package session implements the session state controller: screen
// navigation, stopwatch lifecycle, the bounded favorites shortlist,
// and the read/append contract with the record store. It is the single
// source of truth the rendering layer reads; screens never own state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksuda/kiroku/internal/catalog"
	"github.com/ksuda/kiroku/internal/favorites"
	"github.com/ksuda/kiroku/internal/record"
	"github.com/ksuda/kiroku/internal/timer"
)

// Screen identifies which of the two screens is active.
type Screen int

const (
	ScreenOverview Screen = iota
	ScreenDrill
)

// Selection is the navigation state. Subject/Level/Variant are all set
// iff Screen is ScreenDrill and all empty iff ScreenOverview.
type Selection struct {
	Screen  Screen
	Subject string
	Level   string
	Variant string
}

// Controller composes the timer, favorites, selection, and record
// store for one interactive session. State transitions (navigation,
// timer, favorites, saves) run from the update loop one at a time;
// the read path (Records, the aggregates, StoreWarning) is also
// called from command goroutines, so the warning is guarded.
type Controller struct {
	id        string
	catalog   *catalog.Catalog
	store     record.Store
	timer     *timer.Controller
	favorites *favorites.Manager
	log       *zap.Logger
	now       func() time.Time

	sel Selection

	warnMu       sync.Mutex
	storeWarning string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithClock replaces the wall clock used for record dates in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTimer replaces the stopwatch, used by tests that need a fake
// clock inside the timer.
func WithTimer(t *timer.Controller) Option {
	return func(c *Controller) { c.timer = t }
}

// NewController creates a session starting on the overview screen.
// countdownTicks configures the pre-start countdown (0 disables it).
func NewController(cat *catalog.Catalog, st record.Store, countdownTicks int, opts ...Option) *Controller {
	c := &Controller{
		id:        uuid.NewString(),
		catalog:   cat,
		store:     st,
		timer:     timer.New(countdownTicks),
		favorites: favorites.NewManager(),
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info("session started", zap.String("session_id", c.id))
	return c
}

// ID returns the session identifier used in logs.
func (c *Controller) ID() string { return c.id }

// Catalog returns the immutable drill catalog.
func (c *Controller) Catalog() *catalog.Catalog { return c.catalog }

// Selection returns the current navigation state.
func (c *Controller) Selection() Selection { return c.sel }

// Timer exposes the stopwatch for display reads.
func (c *Controller) Timer() *timer.Controller { return c.timer }

// Start, Stop, and Reset drive the stopwatch. Invalid transitions are
// no-ops inside the timer.
func (c *Controller) Start() { c.timer.Start() }
func (c *Controller) Stop()  { c.timer.Stop() }
func (c *Controller) Reset() { c.timer.Reset() }

// GoToDrill activates the drill screen for (subject, level) and an
// optional variant. Any prior measurement is discarded.
func (c *Controller) GoToDrill(subject, level, variant string) error {
	entry, ok := c.catalog.Lookup(subject, level)
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("unknown drill %s/%s", subject, level)}
	}
	if !entry.HasVariant(variant) {
		return &ValidationError{Reason: fmt.Sprintf("drill %s/%s has no variant %q", subject, level, variant)}
	}
	c.sel = Selection{Screen: ScreenDrill, Subject: subject, Level: level, Variant: variant}
	c.timer.Reset()
	return nil
}

// GoToOverview clears the selection and returns to the overview.
// Favorites are untouched.
func (c *Controller) GoToOverview() {
	c.sel = Selection{Screen: ScreenOverview}
}

// ToggleFavorite flips shortlist membership of (subject, level).
// Returns favorites.ErrCapacityExceeded when the shortlist is full.
func (c *Controller) ToggleFavorite(subject, level string) (added bool, err error) {
	added, err = c.favorites.Toggle(subject, level)
	if err != nil {
		c.log.Warn("favorite rejected",
			zap.String("subject", subject), zap.String("level", level), zap.Error(err))
	}
	return added, err
}

// Favorites returns the shortlist in insertion order.
func (c *Controller) Favorites() []favorites.Entry { return c.favorites.List() }

// IsFavorite reports shortlist membership.
func (c *Controller) IsFavorite(subject, level string) bool {
	return c.favorites.IsFavorite(subject, level)
}

// SaveCurrentMeasurement persists the stopped stopwatch reading as a
// record. Preconditions: a drill selection is active, the timer is
// Stopped, and the measurement is positive. On success the session
// returns to the overview with the timer reset; on a precondition
// failure nothing reaches the store.
func (c *Controller) SaveCurrentMeasurement(ctx context.Context, mistakes *int) (record.Record, error) {
	if c.timer.Mode() != timer.ModeStopped || c.timer.Elapsed() <= 0 {
		return record.Record{}, &ValidationError{Reason: "no completed measurement to save"}
	}
	return c.SaveMeasurement(ctx, c.timer.Elapsed().Seconds(), mistakes)
}

// SaveMeasurement persists an explicit time in seconds against the
// active drill selection. This is the manual-entry path: the drill
// screen uses it when the measured time is overridden by hand, and the
// add subcommand shares its validation.
func (c *Controller) SaveMeasurement(ctx context.Context, seconds float64, mistakes *int) (record.Record, error) {
	if c.sel.Screen != ScreenDrill {
		return record.Record{}, &ValidationError{Reason: "no drill selected"}
	}
	entry, ok := c.catalog.Lookup(c.sel.Subject, c.sel.Level)
	if !ok {
		return record.Record{}, &ValidationError{Reason: fmt.Sprintf("unknown drill %s/%s", c.sel.Subject, c.sel.Level)}
	}
	if !entry.TracksMistakes {
		mistakes = nil
	}

	r := record.Record{
		Date:     c.now(),
		Subject:  c.sel.Subject,
		Level:    c.sel.Level,
		Variant:  c.sel.Variant,
		Seconds:  seconds,
		Mistakes: mistakes,
	}
	if err := r.Validate(); err != nil {
		return record.Record{}, &ValidationError{Reason: err.Error()}
	}

	if err := c.store.Append(ctx, r); err != nil {
		c.log.Error("append record failed", zap.String("session_id", c.id), zap.Error(err))
		return record.Record{}, fmt.Errorf("save record: %w", err)
	}

	c.log.Info("record saved",
		zap.String("session_id", c.id),
		zap.String("subject", r.Subject),
		zap.String("level", r.Level),
		zap.Float64("seconds", r.Seconds))

	c.timer.Reset()
	c.GoToOverview()
	return r, nil
}

// Records loads the dataset, degrading an unreachable or malformed
// store to an empty dataset with a warning. The warning is readable
// via StoreWarning until a load succeeds.
func (c *Controller) Records(ctx context.Context) []record.Record {
	records, err := c.store.Load(ctx)
	if err != nil {
		c.setStoreWarning(fmt.Sprintf("record store unavailable: %v", err))
		c.log.Warn("load records failed", zap.String("session_id", c.id), zap.Error(err))
		return nil
	}
	c.setStoreWarning("")
	return records
}

func (c *Controller) setStoreWarning(msg string) {
	c.warnMu.Lock()
	c.storeWarning = msg
	c.warnMu.Unlock()
}

// StoreWarning returns the last load failure message, empty when the
// last load succeeded.
func (c *Controller) StoreWarning() string {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	return c.storeWarning
}

// Refresh drops the store's read cache so the next load hits the
// backend. This is the manual recovery path after a store failure.
func (c *Controller) Refresh() {
	c.store.Invalidate()
}

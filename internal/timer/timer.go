// Package timer implements the stopwatch state machine for a drill attempt.
package timer

import "time"

// Mode is the stopwatch lifecycle state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCountingDown
	ModeRunning
	ModeStopped
)

// String returns a short label for display and logging.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeCountingDown:
		return "counting-down"
	case ModeRunning:
		return "running"
	case ModeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Controller is a reusable stopwatch with an optional pre-start countdown.
//
// The countdown is modeled as an explicit CountingDown state advanced by
// Tick, so an event-driven host schedules the ticks instead of blocking.
// The start instant is captured only after the countdown completes; the
// countdown pause is never counted into the measurement.
type Controller struct {
	mode           Mode
	startedAt      time.Time
	elapsed        time.Duration
	countdownTicks int
	countdownLeft  int
	now            func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, used by tests to simulate time.
// time.Time values from the real clock carry a monotonic reading, so
// elapsed measurements are immune to wall-clock adjustments.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates an idle Controller. countdownTicks is the number of
// one-second countdown steps before the measurement starts; 0 disables
// the countdown entirely.
func New(countdownTicks int, opts ...Option) *Controller {
	c := &Controller{
		countdownTicks: countdownTicks,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new measurement. Valid from Idle or Stopped; a prior
// measurement is discarded. With a countdown configured the controller
// enters CountingDown and the host must drive Tick; otherwise it starts
// running immediately. No-op while CountingDown or Running.
func (c *Controller) Start() {
	if c.mode == ModeCountingDown || c.mode == ModeRunning {
		return
	}
	c.elapsed = 0
	if c.countdownTicks > 0 {
		c.mode = ModeCountingDown
		c.countdownLeft = c.countdownTicks
		return
	}
	c.beginRun()
}

// Tick advances the countdown by one step. When the last step completes
// the controller transitions to Running and captures the start instant.
// No-op outside CountingDown.
func (c *Controller) Tick() {
	if c.mode != ModeCountingDown {
		return
	}
	c.countdownLeft--
	if c.countdownLeft <= 0 {
		c.beginRun()
	}
}

// Stop ends the measurement: Running -> Stopped with elapsed computed
// from the start instant. Calling Stop in any other state is a no-op,
// leaving all state untouched.
func (c *Controller) Stop() {
	if c.mode != ModeRunning {
		return
	}
	elapsed := c.now().Sub(c.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	c.elapsed = elapsed
	c.mode = ModeStopped
}

// Reset returns the controller to Idle from any state and clears the
// measurement.
func (c *Controller) Reset() {
	c.mode = ModeIdle
	c.startedAt = time.Time{}
	c.elapsed = 0
	c.countdownLeft = 0
}

// Mode returns the current lifecycle state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Elapsed returns the completed measurement. It is non-zero only when
// the controller is Stopped.
func (c *Controller) Elapsed() time.Duration {
	if c.mode != ModeStopped {
		return 0
	}
	return c.elapsed
}

// Reading returns the value a live display should show: the running
// time while Running, the final measurement while Stopped, zero
// otherwise.
func (c *Controller) Reading() time.Duration {
	switch c.mode {
	case ModeRunning:
		d := c.now().Sub(c.startedAt)
		if d < 0 {
			return 0
		}
		return d
	case ModeStopped:
		return c.elapsed
	default:
		return 0
	}
}

// CountdownRemaining returns the number of countdown steps left, 0 when
// not counting down.
func (c *Controller) CountdownRemaining() int {
	if c.mode != ModeCountingDown {
		return 0
	}
	return c.countdownLeft
}

func (c *Controller) beginRun() {
	c.startedAt = c.now()
	c.elapsed = 0
	c.countdownLeft = 0
	c.mode = ModeRunning
}

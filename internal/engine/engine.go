package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-agenda/internal/config"
)

// Engine ties the store, the navigation state and the grid pipeline together
// for a host. It is safe for concurrent use.
type Engine struct {
	Clock Clock // Interface for time mocking.

	events     *Coordinator
	weekStart  time.Weekday
	displayCap int

	mu    sync.RWMutex
	state ReferenceState
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeekStart sets the first day of week used by month and week grids.
func WithWeekStart(d time.Weekday) Option {
	return func(e *Engine) { e.weekStart = d }
}

// WithDisplayCap sets how many events a month cell shows before "+N more".
func WithDisplayCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.displayCap = n
		}
	}
}

// WithPlaceholder sets the title given to events created with a blank title.
func WithPlaceholder(title string) Option {
	return func(e *Engine) {
		if title != "" {
			e.events.Placeholder = title
		}
	}
}

// WithStrictStatus enables the pending -> confirmed -> cancelled state machine.
func WithStrictStatus(strict bool) Option {
	return func(e *Engine) { e.events.StrictStatus = strict }
}

// WithChangeListener registers fn to run after every successful mutation.
func WithChangeListener(fn func()) Option {
	return func(e *Engine) { e.events.OnChange = fn }
}

// WithViewMode sets the initial view mode.
func WithViewMode(mode ViewMode) Option {
	return func(e *Engine) { e.state.Mode = mode }
}

// New returns an Engine over an empty store, anchored on today in month view.
// It panics when clock is nil.
func New(clock Clock, opts ...Option) *Engine {
	if clock == nil {
		// The host owns "now"; there is no ambient fallback.
		panic(config.ErrClockMissing)
	}
	e := &Engine{
		Clock:      clock,
		events:     NewCoordinator(NewStore()),
		weekStart:  time.Sunday,
		displayCap: config.DefaultDisplayCap,
		state:      ReferenceState{Mode: ViewMonth},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state.Date = Today(clock)
	return e
}

// Events returns the mutation coordinator shared by every caller.
func (e *Engine) Events() *Coordinator {
	return e.events
}

// WeekStart returns the configured first day of week.
func (e *Engine) WeekStart() time.Weekday {
	return e.weekStart
}

// Today returns the current date according to the engine clock.
func (e *Engine) Today() Date {
	return Today(e.Clock)
}

// State returns the current reference state.
func (e *Engine) State() ReferenceState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Next moves one step forward in the active mode.
func (e *Engine) Next() ReferenceState {
	return e.navigate(Next)
}

// Previous moves one step back in the active mode.
func (e *Engine) Previous() ReferenceState {
	return e.navigate(Previous)
}

// GoToToday anchors the view on the clock's current date.
func (e *Engine) GoToToday() ReferenceState {
	today := e.Today()
	return e.navigate(func(s ReferenceState) ReferenceState { return GoToToday(s, today) })
}

// GoTo anchors the view on d.
func (e *Engine) GoTo(d Date) ReferenceState {
	return e.navigate(func(s ReferenceState) ReferenceState { return GoToDate(s, d) })
}

// SetViewMode switches the view mode, keeping the reference date.
func (e *Engine) SetViewMode(mode ViewMode) (ReferenceState, error) {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return e.State(), err
	}
	return e.navigate(func(s ReferenceState) ReferenceState { return SetViewMode(s, mode) }), nil
}

// NavAction names a relative move of the reference state.
type NavAction string

const (
	NavNext     NavAction = config.NavNext
	NavPrevious NavAction = config.NavPrevious
	NavToday    NavAction = config.NavToday
)

// Navigate optionally switches to mode and then applies action, as a single
// step. An empty mode keeps the active one. Nothing moves when either
// argument is rejected.
func (e *Engine) Navigate(action NavAction, mode ViewMode) (ReferenceState, error) {
	var step func(ReferenceState) ReferenceState
	switch action {
	case NavNext:
		step = Next
	case NavPrevious:
		step = Previous
	case NavToday:
		today := e.Today()
		step = func(s ReferenceState) ReferenceState { return GoToToday(s, today) }
	default:
		return e.State(), fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if mode != "" {
		if _, err := ParseViewMode(string(mode)); err != nil {
			return e.State(), err
		}
	}

	return e.navigate(func(s ReferenceState) ReferenceState {
		if mode != "" {
			s = SetViewMode(s, mode)
		}
		return step(s)
	}), nil
}

func (e *Engine) navigate(fn func(ReferenceState) ReferenceState) ReferenceState {
	e.mu.Lock()
	old := e.state
	e.state = fn(e.state)
	next := e.state
	e.mu.Unlock()

	if old != next {
		slog.Debug(config.MsgNavigated,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyMode, string(next.Mode),
			config.LogKeyOld, old.Date.String(),
			config.LogKeyNew, next.Date.String())
	}
	return next
}

// Render builds the grid for the current state and places the stored events.
func (e *Engine) Render() (Grid, []PlacementWarning, error) {
	return e.RenderAt(e.State())
}

// RenderAt builds the grid for an arbitrary state without moving the engine.
func (e *Engine) RenderAt(s ReferenceState) (Grid, []PlacementWarning, error) {
	g, err := BuildGrid(s.Date, s.Mode, e.Today(), e.weekStart)
	if err != nil {
		return Grid{}, nil, err
	}
	placed, warnings := PlaceEvents(g, e.events.ListAll(), e.displayCap)
	return placed, warnings, nil
}

package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tartampluch/go-agenda/internal/config"
)

// Coordinator is the create/update/delete façade over a Store. Every
// mutation is validated in full before the store is touched.
type Coordinator struct {
	Store *Store

	// Placeholder is the title given to events created with a blank title.
	Placeholder string

	// StrictStatus enables the pending -> confirmed -> cancelled state machine.
	StrictStatus bool

	// OnChange, when set, is called after every successful mutation.
	OnChange func()
}

// NewCoordinator returns a Coordinator over store with the default placeholder.
func NewCoordinator(store *Store) *Coordinator {
	return &Coordinator{Store: store, Placeholder: config.FallbackTitle}
}

// Create validates draft, assigns an id and appends the event.
func (c *Coordinator) Create(draft EventDraft) (Event, error) {
	e := draft.toEvent("")
	if strings.TrimSpace(e.Title) == "" {
		e.Title = c.placeholder()
	}
	status, err := ParseStatus(string(e.Status))
	if err != nil {
		return Event{}, c.reject("create", "", err)
	}
	e.Status = status
	if err := e.Validate(); err != nil {
		return Event{}, c.reject("create", "", err)
	}

	stored := c.Store.Insert(e)
	slog.Info(config.MsgEventCreated,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyEventID, stored.ID,
		config.LogKeyDate, stored.Date,
		config.LogKeyTime, stored.Time)
	c.changed()
	return stored, nil
}

// Update merges patch into the event with the given id. The id never
// changes; the merged event must satisfy every invariant or nothing is written.
func (c *Coordinator) Update(id string, patch EventPatch) (Event, error) {
	var oldStatus Status
	updated, err := c.Store.Modify(id, func(current Event) (Event, error) {
		oldStatus = current.Status
		next := patch.Apply(current)
		if patch.Status != nil {
			// Blank means "pending" only on create; a patch must name a status.
			if *patch.Status == "" {
				return Event{}, fmt.Errorf("%w: %q", ErrInvalidStatus, "")
			}
			st, err := ParseStatus(string(*patch.Status))
			if err != nil {
				return Event{}, err
			}
			next.Status = st
		}
		if patch.Title != nil && strings.TrimSpace(next.Title) == "" {
			next.Title = c.placeholder()
		}
		if err := next.Validate(); err != nil {
			return Event{}, err
		}
		if c.StrictStatus && !CanTransition(current.Status, next.Status) {
			return Event{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next.Status)
		}
		return next, nil
	})
	if err != nil {
		return Event{}, c.reject("update", id, err)
	}

	slog.Info(config.MsgEventUpdated,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyEventID, id,
		config.LogKeyOld, string(oldStatus),
		config.LogKeyNew, string(updated.Status))
	c.changed()
	return updated, nil
}

// Delete removes the event. Deleting an unknown (or already deleted) id
// fails with ErrNotFound.
func (c *Coordinator) Delete(id string) error {
	if _, err := c.Store.Remove(id); err != nil {
		return c.reject("delete", id, err)
	}
	slog.Info(config.MsgEventDeleted,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyEventID, id)
	c.changed()
	return nil
}

// Get returns one event by id.
func (c *Coordinator) Get(id string) (Event, error) {
	e, ok := c.Store.Get(id)
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e, nil
}

// ListAll returns a snapshot of every event in insertion order. Mutating the
// returned slice does not affect the store.
func (c *Coordinator) ListAll() []Event {
	return c.Store.All()
}

// EventsBetween returns the events overlapping the inclusive date range.
func (c *Coordinator) EventsBetween(from, to Date) []Event {
	return c.Store.Between(from, to)
}

func (c *Coordinator) placeholder() string {
	if c.Placeholder == "" {
		return config.FallbackTitle
	}
	return c.Placeholder
}

func (c *Coordinator) changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *Coordinator) reject(op, id string, err error) error {
	slog.Debug(config.MsgMutationDenied,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyOp, op,
		config.LogKeyEventID, id,
		config.LogKeyError, err)
	return err
}

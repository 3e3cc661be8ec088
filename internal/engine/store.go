package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rdleal/intervalst/interval"
	"github.com/tartampluch/go-agenda/internal/config"
)

// Store owns the canonical, insertion-ordered collection of events.
//
// All writers are serialized by mu. Snapshots returned by All are copies and
// become stale as soon as a later mutation happens. Every event with a
// readable date is also kept in an interval tree so range queries do not
// scan the whole collection.
type Store struct {
	mu     sync.RWMutex
	events []Event
	pos    map[string]int // id -> index in events

	// The tree holds one value per interval, so events with identical spans
	// share a slot listed in groups.
	tree   *interval.SearchTree[[]string, time.Time]
	groups map[span][]string

	// NewID generates identities. Defaults to UUIDv7 strings.
	NewID func() string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pos:    make(map[string]int),
		tree:   interval.NewSearchTree[[]string](func(x, y time.Time) int { return x.Compare(y) }),
		groups: make(map[span][]string),
		NewID:  newEventID,
	}
}

func newEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Insert assigns a fresh id to e, appends it and returns the stored copy.
// Any id already present on e is discarded.
func (s *Store) Insert(e Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.NewID()
	for _, taken := s.pos[e.ID]; taken; _, taken = s.pos[e.ID] {
		e.ID = s.NewID()
	}
	s.pos[e.ID] = len(s.events)
	s.events = append(s.events, e)
	s.index(e)
	return e
}

// Modify runs fn on the event with the given id and stores its result.
// If fn fails, the store is left untouched. The stored id is kept whatever
// fn returns.
func (s *Store) Modify(id string, fn func(Event) (Event, error)) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.pos[id]
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	next, err := fn(s.events[i])
	if err != nil {
		return Event{}, err
	}
	next.ID = id
	s.unindex(s.events[i])
	s.events[i] = next
	s.index(next)
	return next, nil
}

// Remove deletes the event with the given id, keeping the order of the rest.
// Removing an unknown id is an error so callers can detect double deletes.
func (s *Store) Remove(id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.pos[id]
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	removed := s.events[i]
	s.unindex(removed)
	s.events = slices.Delete(s.events, i, i+1)
	delete(s.pos, id)
	for j := i; j < len(s.events); j++ {
		s.pos[s.events[j].ID] = j
	}
	return removed, nil
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.pos[id]
	if !ok {
		return Event{}, false
	}
	return s.events[i], true
}

// All returns a copy of every event in insertion order.
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.events)
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}

// Between returns the events whose time span overlaps the inclusive date
// range [from, to], in insertion order. Events with an unreadable date are
// never returned.
func (s *Store) Between(from, to Date) []Event {
	if to.Before(from) {
		return nil
	}
	rangeStart := from.Time(nil)
	rangeEnd := AddDays(to, 1).Time(nil).Add(-time.Nanosecond)

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, ok := s.tree.AllIntersections(rangeStart, rangeEnd)
	if !ok {
		return nil
	}

	var idx []int
	for _, ids := range hits {
		for _, id := range ids {
			idx = append(idx, s.pos[id])
		}
	}
	slices.Sort(idx)

	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out
}

// index adds e to the interval tree. Callers hold mu.
func (s *Store) index(e Event) {
	sp, ok := eventSpan(e)
	if !ok {
		return
	}
	ids := append(slices.Clone(s.groups[sp]), e.ID)
	s.groups[sp] = ids
	if err := s.tree.Insert(sp.start, sp.end, ids); err != nil {
		slog.Warn(config.ErrIndexInsert,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyEventID, e.ID,
			config.LogKeyError, err)
	}
}

// unindex removes e from the interval tree. Callers hold mu.
func (s *Store) unindex(e Event) {
	sp, ok := eventSpan(e)
	if !ok {
		return
	}
	ids := slices.DeleteFunc(slices.Clone(s.groups[sp]), func(id string) bool { return id == e.ID })

	var err error
	if len(ids) == 0 {
		delete(s.groups, sp)
		err = s.tree.Delete(sp.start, sp.end)
	} else {
		s.groups[sp] = ids
		err = s.tree.Insert(sp.start, sp.end, ids)
	}
	if err != nil {
		slog.Warn(config.ErrIndexInsert,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyEventID, e.ID,
			config.LogKeyError, err)
	}
}

// span is the closed interval an event occupies on the local clock.
type span struct {
	start time.Time
	end   time.Time
}

// eventSpan computes the span of e. Events with an unreadable time occupy
// their whole day; events with an unreadable date have no span.
func eventSpan(e Event) (span, bool) {
	d, tod, err := e.Start()
	if d.IsZero() {
		return span{}, false
	}
	if err != nil {
		start := d.Time(nil)
		return span{start: start, end: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}, true
	}
	start := d.At(tod, nil)
	minutes := e.DurationMinutes
	if minutes <= 0 {
		minutes = 1
	}
	return span{start: start, end: start.Add(time.Duration(minutes)*time.Minute - time.Nanosecond)}, true
}

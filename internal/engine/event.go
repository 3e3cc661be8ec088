package engine

import (
	"fmt"
	"strings"

	"github.com/tartampluch/go-agenda/internal/config"
)

// Status controls display treatment only.
type Status string

const (
	StatusConfirmed Status = config.StatusConfirmed
	StatusPending   Status = config.StatusPending
	StatusCancelled Status = config.StatusCancelled
)

// ParseStatus validates a status token. An empty token yields StatusPending.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(s)); st {
	case StatusConfirmed, StatusPending, StatusCancelled:
		return st, nil
	case "":
		return Status(config.DefaultStatus), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusConfirmed || s == StatusPending || s == StatusCancelled
}

// allowedTransitions is the opt-in status state machine.
// Staying in the same status is always allowed.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

// CanTransition reports whether the strict state machine allows from -> to.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Event is the scheduled unit held by the Store.
type Event struct {
	// ID is assigned by the Store on creation and never changes.
	ID string `json:"id"`

	Title string `json:"title"`

	// Date is the ISO calendar date (YYYY-MM-DD).
	Date string `json:"date"`

	// Time is the 24-hour, zero-padded wall-clock start (HH:mm).
	Time string `json:"time"`

	DurationMinutes int    `json:"durationMinutes"`
	Status          Status `json:"status"`

	// Color is an opaque style token for the renderer.
	Color string `json:"color"`

	// Optional descriptive fields; zero values mean "absent".
	Location      string `json:"location,omitempty"`
	AttendeeCount int    `json:"attendeeCount,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// EventDraft is the caller-supplied content of a new event.
type EventDraft struct {
	Title           string `json:"title"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	Status          Status `json:"status"`
	Color           string `json:"color"`
	Location        string `json:"location,omitempty"`
	AttendeeCount   int    `json:"attendeeCount,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// EventPatch lists the fields to change on update. Nil fields are left as is.
type EventPatch struct {
	// ID is accepted so decoded payloads round-trip, but it is always ignored.
	ID *string `json:"id,omitempty"`

	Title           *string `json:"title,omitempty"`
	Date            *string `json:"date,omitempty"`
	Time            *string `json:"time,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	Status          *Status `json:"status,omitempty"`
	Color           *string `json:"color,omitempty"`
	Location        *string `json:"location,omitempty"`
	AttendeeCount   *int    `json:"attendeeCount,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// toEvent copies the draft into an Event with the given id.
func (d EventDraft) toEvent(id string) Event {
	return Event{
		ID:              id,
		Title:           d.Title,
		Date:            d.Date,
		Time:            d.Time,
		DurationMinutes: d.DurationMinutes,
		Status:          d.Status,
		Color:           d.Color,
		Location:        d.Location,
		AttendeeCount:   d.AttendeeCount,
		Notes:           d.Notes,
	}
}

// Apply returns a copy of e with the patch merged in. ID is never changed.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.DurationMinutes != nil {
		e.DurationMinutes = *p.DurationMinutes
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.AttendeeCount != nil {
		e.AttendeeCount = *p.AttendeeCount
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	return e
}

// Start parses the event's date and time.
func (e Event) Start() (Date, TimeOfDay, error) {
	d, err := ParseDate(e.Date)
	if err != nil {
		return Date{}, TimeOfDay{}, err
	}
	tod, err := ParseTimeOfDay(e.Time)
	if err != nil {
		return d, TimeOfDay{}, err
	}
	return d, tod, nil
}

// Validate checks the invariants every stored event must satisfy.
func (e Event) Validate() error {
	if _, _, err := e.Start(); err != nil {
		return err
	}
	if e.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, e.DurationMinutes)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return nil
}

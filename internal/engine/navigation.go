package engine

import "github.com/tartampluch/go-agenda/internal/config"

// ReferenceState is the anchor of the current view.
type ReferenceState struct {
	Date Date     `json:"date"`
	Mode ViewMode `json:"mode"`
}

// Next advances the reference date by one step of the active mode.
func Next(s ReferenceState) ReferenceState {
	return step(s, 1)
}

// Previous moves the reference date back by one step of the active mode.
func Previous(s ReferenceState) ReferenceState {
	return step(s, -1)
}

// step moves by whole (clamped) months, exactly 7 days or exactly 1 day.
func step(s ReferenceState, dir int) ReferenceState {
	switch s.Mode {
	case ViewMonth:
		s.Date = AddMonths(s.Date, dir)
	case ViewWeek:
		s.Date = AddDays(s.Date, dir*config.DaysPerWeek)
	case ViewDay:
		s.Date = AddDays(s.Date, dir)
	}
	return s
}

// GoToToday moves the reference date to today, keeping the mode. When the
// date already equals today the state is returned unchanged, whatever the mode.
func GoToToday(s ReferenceState, today Date) ReferenceState {
	if IsSameDay(s.Date, today) {
		return s
	}
	s.Date = today
	return s
}

// GoToDate jumps to d, keeping the mode.
func GoToDate(s ReferenceState, d Date) ReferenceState {
	s.Date = d
	return s
}

// SetViewMode changes only the mode; the reference date is untouched.
func SetViewMode(s ReferenceState, mode ViewMode) ReferenceState {
	s.Mode = mode
	return s
}

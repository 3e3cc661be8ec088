package engine

import "time"

// Clock abstracts time.Now() so the host decides what "today" is.
// The engine never reads the system clock on its own.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the calendar date of clock.Now() in the clock's own location.
func Today(clock Clock) Date {
	return DateOf(clock.Now())
}

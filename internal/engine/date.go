package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-agenda/internal/config"
)

// Date is a calendar date with no time-of-day component.
// The zero value is not a valid date; use NewDate, DateOf or ParseDate.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, normalizing out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(config.DateFormatKey, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return DateOf(t), nil
}

// Time returns midnight of d in loc (UTC when loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns d at hour:minute in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return d.Time(loc).Add(time.Duration(tod.Hour)*time.Hour + time.Duration(tod.Minute)*time.Minute)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time(nil).Weekday()
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time(nil).Before(other.Time(nil))
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time(nil).After(other.Time(nil))
}

// String returns the canonical date key.
func (d Date) String() string {
	return FormatDateKey(d)
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(FormatDateKey(d)), nil
}

// UnmarshalText decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FormatDateKey returns the canonical YYYY-MM-DD string. Two dates are the
// same day for placement purposes iff their keys match.
func FormatDateKey(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays steps d by n days, rolling over months and years.
func AddDays(d Date, n int) Date {
	return DateOf(d.Time(nil).AddDate(0, 0, n))
}

// AddMonths steps d by n calendar months. The day is clamped to the length of
// the target month, so Jan 31 + 1 month is Feb 28 (or 29), never Mar 3.
func AddMonths(d Date, n int) Date {
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// SubMonths is AddMonths(d, -n).
func SubMonths(d Date, n int) Date {
	return AddMonths(d, -n)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: daysIn(d.Year, d.Month)}
}

// StartOfWeek returns the weekStart day on or before d.
func StartOfWeek(d Date, weekStart time.Weekday) Date {
	offset := (int(d.Weekday()) - int(weekStart) + config.DaysPerWeek) % config.DaysPerWeek
	return AddDays(d, -offset)
}

// EndOfWeek returns the last day of the week containing d.
func EndOfWeek(d Date, weekStart time.Weekday) Date {
	return AddDays(StartOfWeek(d, weekStart), config.DaysPerWeek-1)
}

// StartOfGridMonth returns the first cell date of the month grid containing d:
// the start of the week containing the first of d's month.
func StartOfGridMonth(d Date, weekStart time.Weekday) Date {
	return StartOfWeek(StartOfMonth(d), weekStart)
}

// EndOfGridMonth returns the end of the week containing the last day of d's month.
func EndOfGridMonth(d Date, weekStart time.Weekday) Date {
	return EndOfWeek(EndOfMonth(d), weekStart)
}

// IsSameDay compares two dates by their canonical key.
func IsSameDay(a, b Date) bool {
	return FormatDateKey(a) == FormatDateKey(b)
}

// IsSameHour reports whether a and b fall in the same clock hour of the same day.
// b is compared in a's location.
func IsSameHour(a, b time.Time) bool {
	b = b.In(a.Location())
	return DateOf(a) == DateOf(b) && a.Hour() == b.Hour()
}

// ParseWeekStart maps "sunday"/"monday" to a time.Weekday.
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.WeekStartSunday:
		return time.Sunday, nil
	case config.WeekStartMonday:
		return time.Monday, nil
	default:
		return time.Sunday, fmt.Errorf("%s: %q", config.ErrInvalidWeekStart, s)
	}
}

// TimeOfDay is a wall-clock time on the single local clock.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a strict, zero-padded 24-hour HH:mm string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != len(config.TimeFormatClock) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	t, err := time.Parse(config.TimeFormatClock, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ParseHour extracts the hour from an HH:mm string. It fails with
// ErrMalformedTime rather than returning a sentinel hour.
func ParseHour(s string) (int, error) {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		return 0, err
	}
	return tod.Hour, nil
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats t as HH:mm.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

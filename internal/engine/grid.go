package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/go-agenda/internal/config"
)

// ViewMode selects the grid shape and the navigation step.
type ViewMode string

const (
	ViewMonth ViewMode = config.ViewMonth
	ViewWeek  ViewMode = config.ViewWeek
	ViewDay   ViewMode = config.ViewDay
)

// ParseViewMode accepts exactly "month", "week" or "day".
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewMonth, ViewWeek, ViewDay:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
	}
}

// Hourly reports whether cells of this mode are addressed by hour.
func (m ViewMode) Hourly() bool {
	return m == ViewWeek || m == ViewDay
}

// Cell is one addressable slot of a grid. Month cells have no hour.
type Cell struct {
	Date    Date `json:"date"`
	Hour    int  `json:"hour"`
	HasHour bool `json:"hasHour"`

	// InMonth is false for leading/trailing days of a month grid (dimmed).
	InMonth bool `json:"inMonth"`
	IsToday bool `json:"isToday"`

	// Events is the full ordered bucket. Displayed is its visible prefix and
	// Overflow counts what was summarized as "+N more".
	Events    []Event `json:"events"`
	Displayed []Event `json:"displayed"`
	Overflow  int     `json:"overflow"`
}

// Key identifies the cell: "YYYY-MM-DD" or "YYYY-MM-DDTHH".
func (c Cell) Key() string {
	return cellKey(c.Date, c.Hour, c.HasHour)
}

func cellKey(d Date, hour int, hasHour bool) string {
	if !hasHour {
		return FormatDateKey(d)
	}
	return fmt.Sprintf(config.FormatCellKey, FormatDateKey(d), hour)
}

// Grid is the set of cells for one (reference date, view mode) pair.
//
// Rows are week rows of 7 cells in month mode and 24 hour rows in week
// (7 cells) and day (1 cell) modes.
type Grid struct {
	Mode      ViewMode     `json:"mode"`
	Reference Date         `json:"reference"`
	Today     Date         `json:"today"`
	WeekStart time.Weekday `json:"weekStart"`
	Days      []Date       `json:"days"`
	Rows      [][]Cell     `json:"rows"`
}

// BuildGrid produces the empty grid for reference and mode. It never looks at
// events, so equal inputs always give equal grids.
func BuildGrid(reference Date, mode ViewMode, today Date, weekStart time.Weekday) (Grid, error) {
	g := Grid{Mode: mode, Reference: reference, Today: today, WeekStart: weekStart}

	switch mode {
	case ViewMonth:
		g.buildMonth()
	case ViewWeek:
		start := StartOfWeek(reference, weekStart)
		for i := 0; i < config.DaysPerWeek; i++ {
			g.Days = append(g.Days, AddDays(start, i))
		}
		g.buildHours()
	case ViewDay:
		g.Days = []Date{reference}
		g.buildHours()
	default:
		return Grid{}, fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
	}

	slog.Debug(config.MsgGridBuilt,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, string(mode),
		config.LogKeyDate, reference.String(),
		config.LogKeyRows, len(g.Rows),
		config.LogKeyCells, g.CellCount())
	return g, nil
}

// buildMonth walks week rows until it passes the end of the grid month; the
// row count (4-6) depends on how the month aligns with the week start.
func (g *Grid) buildMonth() {
	end := EndOfGridMonth(g.Reference, g.WeekStart)
	for d := StartOfGridMonth(g.Reference, g.WeekStart); !d.After(end); {
		row := make([]Cell, 0, config.DaysPerWeek)
		for i := 0; i < config.DaysPerWeek; i++ {
			row = append(row, g.newCell(d, 0, false))
			g.Days = append(g.Days, d)
			d = AddDays(d, 1)
		}
		g.Rows = append(g.Rows, row)
	}
}

func (g *Grid) buildHours() {
	g.Rows = make([][]Cell, config.HoursPerDay)
	for h := 0; h < config.HoursPerDay; h++ {
		row := make([]Cell, 0, len(g.Days))
		for _, d := range g.Days {
			row = append(row, g.newCell(d, h, true))
		}
		g.Rows[h] = row
	}
}

func (g *Grid) newCell(d Date, hour int, hasHour bool) Cell {
	return Cell{
		Date:    d,
		Hour:    hour,
		HasHour: hasHour,
		InMonth: d.Year == g.Reference.Year && d.Month == g.Reference.Month,
		IsToday: IsSameDay(d, g.Today),
	}
}

// First returns the earliest date covered by the grid.
func (g Grid) First() Date {
	if len(g.Days) == 0 {
		return Date{}
	}
	return g.Days[0]
}

// Last returns the latest date covered by the grid.
func (g Grid) Last() Date {
	if len(g.Days) == 0 {
		return Date{}
	}
	return g.Days[len(g.Days)-1]
}

// Contains reports whether d is covered by the grid.
func (g Grid) Contains(d Date) bool {
	return len(g.Days) > 0 && !d.Before(g.First()) && !d.After(g.Last())
}

// CellCount returns the number of addressable cells.
func (g Grid) CellCount() int {
	n := 0
	for _, row := range g.Rows {
		n += len(row)
	}
	return n
}

// CellAt returns the cell for d (and hour, in week/day mode).
func (g Grid) CellAt(d Date, hour int) (Cell, bool) {
	key := cellKey(d, hour, g.Mode.Hourly())
	for _, row := range g.Rows {
		for _, c := range row {
			if c.Key() == key {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// EventsOn returns every event placed on d, in time order, regardless of any
// month display cap. It is the day-detail query.
func (g Grid) EventsOn(d Date) []Event {
	var out []Event
	for _, row := range g.Rows {
		for _, c := range row {
			if IsSameDay(c.Date, d) {
				out = append(out, c.Events...)
			}
		}
	}
	return out
}

// String renders a compact textual form, mainly for logs and debugging.
func (g Grid) String() string {
	return fmt.Sprintf("%s grid %s..%s (%d rows)", g.Mode, g.First(), g.Last(), len(g.Rows))
}

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tartampluch/go-agenda/internal/config"
)

// PlacementWarning reports an event that could not be placed. The event
// itself stays in the store.
type PlacementWarning struct {
	EventID string `json:"eventId"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Err     error  `json:"-"`
}

func (w PlacementWarning) Error() string {
	return fmt.Sprintf("%s: event %s (%s %s): %v", config.MsgEventSkipped, w.EventID, w.Date, w.Time, w.Err)
}

func (w PlacementWarning) Unwrap() error {
	return w.Err
}

// untimed sorts events without a readable time after every timed event.
const untimed = 24 * 60

// PlaceEvents buckets events into a copy of g and returns it along with a
// warning for every event that had to be excluded.
//
// Month cells are keyed by date; week and day cells by (date, hour). Buckets
// are ordered by time of day, ties broken by the order of events. Month cells
// show at most displayCap events (config.DefaultDisplayCap when <= 0) and
// count the rest as Overflow; week and day cells are uncapped. The input grid
// and slice are not modified, so calling it twice yields identical results.
func PlaceEvents(g Grid, events []Event, displayCap int) (Grid, []PlacementWarning) {
	if displayCap <= 0 {
		displayCap = config.DefaultDisplayCap
	}
	hourly := g.Mode.Hourly()

	out := g
	out.Days = slices.Clone(g.Days)
	out.Rows = make([][]Cell, len(g.Rows))
	type addr struct{ row, col int }
	lookup := make(map[string]addr, g.CellCount())
	for r, row := range g.Rows {
		out.Rows[r] = make([]Cell, len(row))
		for c, cell := range row {
			cell.Events, cell.Displayed, cell.Overflow = nil, nil, 0
			out.Rows[r][c] = cell
			lookup[cell.Key()] = addr{r, c}
		}
	}

	var warnings []PlacementWarning
	warn := func(e Event, err error) {
		w := PlacementWarning{EventID: e.ID, Date: e.Date, Time: e.Time, Err: err}
		warnings = append(warnings, w)
		slog.Warn(config.MsgEventSkipped,
			config.LogKeyComponent, config.CompIndexer,
			config.LogKeyEventID, e.ID,
			config.LogKeyDate, e.Date,
			config.LogKeyTime, e.Time,
			config.LogKeyError, err)
	}

	placed := 0
	for _, e := range events {
		d, err := ParseDate(e.Date)
		if err != nil {
			warn(e, err)
			continue
		}
		if !g.Contains(d) {
			continue
		}
		hour := 0
		if hourly {
			h, err := ParseHour(e.Time)
			if err != nil {
				warn(e, err)
				continue
			}
			hour = h
		}

		a, ok := lookup[cellKey(d, hour, hourly)]
		if !ok {
			continue
		}
		cell := &out.Rows[a.row][a.col]
		cell.Events = append(cell.Events, e)
		placed++
	}

	for r := range out.Rows {
		for c := range out.Rows[r] {
			finishCell(&out.Rows[r][c], hourly, displayCap)
		}
	}

	slog.Debug(config.MsgGridIndexed,
		config.LogKeyComponent, config.CompIndexer,
		config.LogKeyMode, string(g.Mode),
		config.LogKeyPlaced, placed,
		config.LogKeySkipped, len(warnings))
	return out, warnings
}

// finishCell orders a bucket and applies the month display cap.
func finishCell(cell *Cell, hourly bool, displayCap int) {
	if len(cell.Events) == 0 {
		return
	}
	slices.SortStableFunc(cell.Events, func(a, b Event) int {
		return startMinutes(a) - startMinutes(b)
	})
	cell.Events = slices.Clip(cell.Events)

	if hourly || len(cell.Events) <= displayCap {
		cell.Displayed = cell.Events
		return
	}
	cell.Displayed = cell.Events[:displayCap:displayCap]
	cell.Overflow = len(cell.Events) - displayCap
}

func startMinutes(e Event) int {
	tod, err := ParseTimeOfDay(e.Time)
	if err != nil {
		return untimed
	}
	return tod.Minutes()
}

// IsMalformed reports whether err is one of the per-event parse failures that
// PlaceEvents recovers from.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedDate) || errors.Is(err, ErrMalformedTime)
}

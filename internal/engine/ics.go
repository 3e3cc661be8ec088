package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-agenda/internal/config"
)

// ExportICS renders events as an iCalendar feed. Start times are floating
// (no TZID) because event times are wall-clock values on the local clock.
// Events whose date or time cannot be read are left out; when nothing remains
// a minimal valid VCALENDAR is returned.
func ExportICS(ctx context.Context, events []Event, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint for subscribed clients.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(stamp.UTC())

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := toVEvent(e)
		if err != nil {
			slog.Warn(config.MsgSkippedExport,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyEventID, e.ID,
				config.LogKeyError, err)
			continue
		}
		ev.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, ev.Component)
	}

	var buf bytes.Buffer
	if len(cal.Children) == 0 {
		buf.WriteString(config.StubVCalendar)
		return buf.Bytes(), nil
	}
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgICalExported,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(cal.Children),
		config.LogKeySizeBytes, buf.Len())
	return buf.Bytes(), nil
}

func toVEvent(e Event) (*ical.Event, error) {
	d, tod, err := e.Start()
	if err != nil {
		return nil, err
	}

	ev := ical.NewEvent()
	ev.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, e.ID, config.ICalDomain))
	ev.Props.SetText(config.PropSummary, e.Title)

	// Set the value by hand: SetDateTime would pin the time to UTC or a TZID.
	startProp := ical.NewProp(config.PropDTStart)
	startProp.Value = d.At(tod, time.UTC).Format(config.DateTimeFormatICSLocal)
	ev.Props.Set(startProp)

	if e.DurationMinutes > 0 {
		durProp := ical.NewProp(config.PropDuration)
		durProp.SetDuration(time.Duration(e.DurationMinutes) * time.Minute)
		ev.Props.Set(durProp)
	}

	if st := icalStatus(e.Status); st != "" {
		ev.Props.SetText(config.PropStatus, st)
	}
	if e.Location != "" {
		ev.Props.SetText(config.PropLocation, e.Location)
	}
	if e.Notes != "" {
		ev.Props.SetText(config.PropDescription, e.Notes)
	}
	if e.Color != "" {
		ev.Props.SetText(config.PropColor, e.Color)
	}
	if e.AttendeeCount > 0 {
		attendees := ical.NewProp(config.PropAttendees)
		attendees.Value = strconv.Itoa(e.AttendeeCount)
		ev.Props.Set(attendees)
	}
	return ev, nil
}

func icalStatus(s Status) string {
	switch s {
	case StatusConfirmed:
		return config.ICalStatusConfirmed
	case StatusPending:
		return config.ICalStatusTentative
	case StatusCancelled:
		return config.ICalStatusCancelled
	default:
		return ""
	}
}

func statusFromICal(v string) Status {
	switch strings.ToUpper(v) {
	case config.ICalStatusConfirmed:
		return StatusConfirmed
	case config.ICalStatusCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// ImportICS reads every VEVENT of an iCalendar stream into drafts, ready to
// be passed to Coordinator.Create. Start times are converted to loc (nil
// means time.Local) and floating times are read as loc wall-clock values.
// Unreadable VEVENTs are logged and skipped.
func ImportICS(ctx context.Context, r io.Reader, loc *time.Location) ([]EventDraft, error) {
	if loc == nil {
		loc = time.Local
	}

	var drafts []EventDraft
	dec := ical.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return drafts, fmt.Errorf("%s: %w", config.ErrICalDecode, err)
		}

		for _, ev := range cal.Events() {
			draft, err := fromVEvent(ev, loc)
			if err != nil {
				slog.Warn(config.MsgSkippedVEvent,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyError, err)
				continue
			}
			drafts = append(drafts, draft)
		}
	}

	slog.Debug(config.MsgICalImported,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(drafts))
	return drafts, nil
}

func fromVEvent(ev ical.Event, loc *time.Location) (EventDraft, error) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return EventDraft{}, fmt.Errorf("%s: %w", config.ErrICalEvent, err)
	}
	if start.IsZero() {
		return EventDraft{}, fmt.Errorf("%s: %s", config.ErrICalEvent, config.PropDTStart)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return EventDraft{}, fmt.Errorf("%s: %w", config.ErrICalEvent, err)
	}

	start = start.In(loc)
	minutes := int(end.Sub(start) / time.Minute)
	if minutes <= 0 {
		// Zero-length or missing end: keep the event visible for one slot.
		minutes = 1
	}

	draft := EventDraft{
		Date:            FormatDateKey(DateOf(start)),
		Time:            start.Format(config.TimeFormatClock),
		DurationMinutes: minutes,
		Status:          StatusPending,
	}
	draft.Title, _ = ev.Props.Text(config.PropSummary)
	draft.Location, _ = ev.Props.Text(config.PropLocation)
	draft.Notes, _ = ev.Props.Text(config.PropDescription)
	if c, _ := ev.Props.Text(config.PropColor); c != "" {
		draft.Color = c
	} else {
		draft.Color = config.DefaultColor
	}
	if p := ev.Props.Get(config.PropStatus); p != nil {
		draft.Status = statusFromICal(p.Value)
	}
	if p := ev.Props.Get(config.PropAttendees); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil && n > 0 {
			draft.AttendeeCount = n
		}
	}
	return draft, nil
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/engine"
)

// gridResponse is the JSON shape of GET /api/grid.
type gridResponse struct {
	engine.Grid
	Weekdays []string `json:"weekdays,omitempty"`

	// MoreLabels maps the key of every capped cell to its "+N more" label.
	MoreLabels map[string]string `json:"moreLabels,omitempty"`
	Warnings   []warningResponse `json:"warnings,omitempty"`
}

type warningResponse struct {
	EventID string `json:"eventId"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Reason  string `json:"reason"`

	// Malformed marks events whose stored date or time needs fixing by hand.
	Malformed bool `json:"malformed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGrid renders the grid. The view and date query parameters override
// the engine's current reference state without changing it.
func (s *CalendarServer) handleGrid(w http.ResponseWriter, r *http.Request) {
	state := s.Engine.State()

	if v := r.URL.Query().Get(config.QueryView); v != "" {
		mode, err := engine.ParseViewMode(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state.Mode = mode
	}
	if v := r.URL.Query().Get(config.QueryDate); v != "" {
		d, err := engine.ParseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state.Date = d
	}

	s.writeGrid(w, r, state)
}

// handleNavigate moves the engine's reference state and returns the new grid.
// An optional view parameter switches the mode before stepping, so
// "next?view=week" moves by one week.
func (s *CalendarServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Navigate(
		engine.NavAction(r.PathValue(config.PathParamAction)),
		engine.ViewMode(r.URL.Query().Get(config.QueryView)),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeGrid(w, r, state)
}

func (s *CalendarServer) writeGrid(w http.ResponseWriter, r *http.Request, state engine.ReferenceState) {
	grid, warnings, err := s.Engine.RenderAt(state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := gridResponse{Grid: grid}
	if s.Labels != nil {
		resp.Weekdays = s.Labels.WeekdayLabels(grid.WeekStart)
		for _, row := range grid.Rows {
			for _, c := range row {
				if c.Overflow > 0 {
					if resp.MoreLabels == nil {
						resp.MoreLabels = make(map[string]string)
					}
					resp.MoreLabels[c.Key()] = s.Labels.MoreLabel(c.Overflow)
				}
			}
		}
	}
	for _, wn := range warnings {
		resp.Warnings = append(resp.Warnings, warningResponse{
			EventID:   wn.EventID,
			Date:      wn.Date,
			Time:      wn.Time,
			Reason:    wn.Err.Error(),
			Malformed: engine.IsMalformed(wn),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *CalendarServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get(config.QueryFrom), r.URL.Query().Get(config.QueryTo)
	if from == "" && to == "" {
		writeJSON(w, http.StatusOK, nonNil(s.Engine.Events().ListAll()))
		return
	}

	start, err := engine.ParseDate(from)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := engine.ParseDate(to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.Engine.Events().EventsBetween(start, end)))
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil(events []engine.Event) []engine.Event {
	if events == nil {
		return []engine.Event{}
	}
	return events
}

func (s *CalendarServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft engine.EventDraft
	if !decodeBody(w, r, &draft) {
		return
	}
	created, err := s.Engine.Events().Create(draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *CalendarServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.Engine.Events().Get(r.PathValue(config.PathParamID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *CalendarServer) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var patch engine.EventPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	updated, err := s.Engine.Events().Update(r.PathValue(config.PathParamID), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *CalendarServer) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Events().Delete(r.PathValue(config.PathParamID)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: config.ErrBadRequestBody + ": " + err.Error()})
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound),
		errors.Is(err, engine.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, engine.ErrMalformedDate),
		errors.Is(err, engine.ErrMalformedTime),
		errors.Is(err, engine.ErrInvalidDuration),
		errors.Is(err, engine.ErrInvalidStatus),
		errors.Is(err, engine.ErrInvalidViewMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *CalendarServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	slog.Debug(config.MsgRequestFailed,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyPath, r.URL.Path,
		config.LogKeyStatus, code,
		config.LogKeyError, err,
	)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = config.HTTPMsgInternalErr
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/engine"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// fixedNow is Tuesday 2025-04-08 10:00 local time.
var fixedNow = time.Date(2025, time.April, 8, 10, 0, 0, 0, time.UTC)

// stubClock always reports the same instant.
type stubClock time.Time

func (c stubClock) Now() time.Time { return time.Time(c) }

type stubLabels struct{}

func (stubLabels) MoreLabel(n int) string { return fmt.Sprintf("+%d more", n) }

func (stubLabels) WeekdayLabels(weekStart time.Weekday) []string {
	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, time.Weekday((int(weekStart)+i)%7).String()[:3])
	}
	return out
}

func newTestServer(t *testing.T, opts ...engine.Option) *CalendarServer {
	t.Helper()
	srv := NewCalendarServer("0", nil, stubLabels{})
	opts = append(opts, engine.WithChangeListener(func() {
		require.NoError(t, srv.Refresh(context.Background()))
	}))
	srv.Engine = engine.New(stubClock(fixedNow), opts...)
	return srv
}

func do(t *testing.T, h http.Handler, method, target, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// -----------------------------------------------------------------------------
// Feed Tests
// -----------------------------------------------------------------------------

// TestHandler_ServingContent verifies that the handler correctly writes
// the standard HTTP headers and body content when data is available.
func TestHandler_ServingContent(t *testing.T) {
	srv := newTestServer(t)
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")
	srv.Update(expectedICS)

	resp := do(t, srv.Handler(), http.MethodGet, "/calendar.ics", "")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

func TestHandler_HeadHasNoBody(t *testing.T) {
	srv := newTestServer(t)
	srv.Update([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR"))

	resp := do(t, srv.Handler(), http.MethodHead, "/calendar.ics", "")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

// TestHandler_Caching verifies that the server respects ETag headers (If-None-Match)
// and returns 304 Not Modified.
func TestHandler_Caching(t *testing.T) {
	srv := newTestServer(t)
	srv.Update([]byte("DATA_VERSION_1"))

	req1 := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	w1 := httptest.NewRecorder()
	srv.handleCalendarRequest(w1, req1)

	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	req2 := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()
	srv.handleCalendarRequest(w2, req2)

	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")
}

// TestHandler_MethodNotAllowed ensures the feed only answers GET and HEAD.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv.Handler(), http.MethodPost, "/calendar.ics", "")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Allow"))
}

// TestHandler_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandler_Initializing(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv.Handler(), http.MethodGet, "/calendar.ics", "")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// TestRefresh_FollowsMutations checks that every mutation rebuilds the feed.
func TestRefresh_FollowsMutations(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	require.NoError(t, srv.Refresh(context.Background()))
	resp := do(t, h, http.MethodGet, "/calendar.ics", "")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, config.StubVCalendar, string(body), "Empty store serves the stub calendar")
	firstETag := resp.Header.Get(config.HeaderETag)

	created := decode[engine.Event](t, do(t, h, http.MethodPost, "/api/events",
		`{"title":"Dentist","date":"2025-04-08","time":"09:00","durationMinutes":30,"status":"confirmed"}`))

	resp = do(t, h, http.MethodGet, "/calendar.ics", "")
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "SUMMARY:Dentist")
	assert.Contains(t, string(body), created.ID)
	assert.NotEqual(t, firstETag, resp.Header.Get(config.HeaderETag))
}

// -----------------------------------------------------------------------------
// API Tests
// -----------------------------------------------------------------------------

func TestAPI_EventLifecycle(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Create
	resp := do(t, h, http.MethodPost, "/api/events",
		`{"title":"Review","date":"2025-04-08","time":"14:00","durationMinutes":60}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[engine.Event](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, engine.StatusPending, created.Status)

	// Get
	resp = do(t, h, http.MethodGet, "/api/events/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, decode[engine.Event](t, resp))

	// Patch
	resp = do(t, h, http.MethodPatch, "/api/events/"+created.ID, `{"time":"15:30","status":"confirmed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[engine.Event](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "15:30", updated.Time)
	assert.Equal(t, engine.StatusConfirmed, updated.Status)

	// Invalid patch leaves the event untouched
	resp = do(t, h, http.MethodPatch, "/api/events/"+created.ID, `{"durationMinutes":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	// List
	resp = do(t, h, http.MethodGet, "/api/events", "")
	list := decode[[]engine.Event](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, updated, list[0])

	// Delete, then delete again
	resp = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp = do(t, h, http.MethodGet, "/api/events", "")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPI_Errors(t *testing.T) {
	srv := newTestServer(t, engine.WithStrictStatus(true))
	h := srv.Handler()

	cancelled := decode[engine.Event](t, do(t, h, http.MethodPost, "/api/events",
		`{"title":"Gone","date":"2025-04-08","time":"08:00","durationMinutes":15,"status":"cancelled"}`))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"Malformed JSON", http.MethodPost, "/api/events", `{`, http.StatusBadRequest},
		{"Unknown field", http.MethodPost, "/api/events", `{"colour":"red"}`, http.StatusBadRequest},
		{"Malformed date", http.MethodPost, "/api/events", `{"date":"2025-13-01","time":"09:00","durationMinutes":10}`, http.StatusBadRequest},
		{"Malformed time", http.MethodPost, "/api/events", `{"date":"2025-04-01","time":"9am","durationMinutes":10}`, http.StatusBadRequest},
		{"Unknown status", http.MethodPost, "/api/events", `{"date":"2025-04-01","time":"09:00","durationMinutes":10,"status":"maybe"}`, http.StatusBadRequest},
		{"Unknown id", http.MethodGet, "/api/events/nope", "", http.StatusNotFound},
		{"Update unknown id", http.MethodPatch, "/api/events/nope", `{"title":"x"}`, http.StatusNotFound},
		{"Forbidden transition", http.MethodPatch, "/api/events/" + cancelled.ID, `{"status":"confirmed"}`, http.StatusConflict},
		{"Blank status patch", http.MethodPatch, "/api/events/" + cancelled.ID, `{"status":""}`, http.StatusBadRequest},
		{"Bad view", http.MethodGet, "/api/grid?view=year", "", http.StatusBadRequest},
		{"Bad grid date", http.MethodGet, "/api/grid?date=2025-4-1", "", http.StatusBadRequest},
		{"Bad range", http.MethodGet, "/api/events?from=x&to=2025-04-30", "", http.StatusBadRequest},
		{"Unknown action", http.MethodPost, "/api/navigate/sideways", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, h, tt.method, tt.target, tt.body)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))
		})
	}
}

// gridPayload is the subset of the grid response the tests look at.
type gridPayload struct {
	Mode       string            `json:"mode"`
	Days       []string          `json:"days"`
	Weekdays   []string          `json:"weekdays"`
	MoreLabels map[string]string `json:"moreLabels"`
	Warnings   []warningResponse `json:"warnings"`
	Rows       [][]struct {
		Date      string         `json:"date"`
		Displayed []engine.Event `json:"displayed"`
		Overflow  int            `json:"overflow"`
	} `json:"rows"`
}

func TestAPI_GridWarnings(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Imported data bypasses validation.
	legacy := srv.Engine.Events().Store.Insert(engine.Event{
		Title: "Legacy", Date: "2025-04-09", Time: "nine", DurationMinutes: 30, Status: engine.StatusPending,
	})

	resp := do(t, h, http.MethodGet, "/api/grid?view=week", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[gridPayload](t, resp)

	require.Len(t, got.Warnings, 1)
	w := got.Warnings[0]
	assert.Equal(t, legacy.ID, w.EventID)
	assert.Equal(t, "nine", w.Time)
	assert.True(t, w.Malformed)
	assert.Contains(t, w.Reason, config.ErrMalformedTime)

	// Month cells only need the date.
	resp = do(t, h, http.MethodGet, "/api/grid?view=month", "")
	got = decode[gridPayload](t, resp)
	assert.Empty(t, got.Warnings)
}

func TestAPI_GridMonthOverflow(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	for _, tm := range []string{"13:00", "09:00", "11:00", "10:00", "12:00"} {
		resp := do(t, h, http.MethodPost, "/api/events",
			`{"title":"E`+tm+`","date":"2025-04-15","time":"`+tm+`","durationMinutes":30}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp := do(t, h, http.MethodGet, "/api/grid?view=month&date=2025-04-01", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[gridPayload](t, resp)

	assert.Equal(t, "month", got.Mode)
	assert.Equal(t, "2025-03-30", got.Days[0], "Sunday-start grid for April 2025")
	assert.Equal(t, "Sun", got.Weekdays[0])
	assert.Equal(t, map[string]string{"2025-04-15": "+3 more"}, got.MoreLabels)

	found := false
	for _, row := range got.Rows {
		for _, c := range row {
			if c.Date == "2025-04-15" {
				found = true
				require.Len(t, c.Displayed, 2)
				assert.Equal(t, "09:00", c.Displayed[0].Time)
				assert.Equal(t, "10:00", c.Displayed[1].Time)
				assert.Equal(t, 3, c.Overflow)
			}
		}
	}
	assert.True(t, found)
}

func TestAPI_NavigateAndRange(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	resp := do(t, h, http.MethodPost, "/api/navigate/next?view=week", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	state := srv.Engine.State()
	assert.Equal(t, engine.ViewWeek, state.Mode)
	assert.Equal(t, engine.NewDate(2025, time.April, 15), state.Date, "The mode switches before the step")

	resp = do(t, h, http.MethodPost, "/api/navigate/previous?view=year", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Equal(t, state, srv.Engine.State(), "A bad view leaves the state alone")

	resp = do(t, h, http.MethodPost, "/api/navigate/sideways", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp = do(t, h, http.MethodPost, "/api/navigate/today", "")
	_ = resp.Body.Close()
	assert.Equal(t, engine.NewDate(2025, time.April, 8), srv.Engine.State().Date)

	for _, d := range []string{"2025-04-01", "2025-04-20", "2025-05-02"} {
		resp := do(t, h, http.MethodPost, "/api/events",
			`{"title":"x","date":"`+d+`","time":"09:00","durationMinutes":30}`)
		_ = resp.Body.Close()
	}
	resp = do(t, h, http.MethodGet, "/api/events?from=2025-04-10&to=2025-04-30", "")
	inRange := decode[[]engine.Event](t, resp)
	require.Len(t, inRange, 1)
	assert.Equal(t, "2025-04-20", inRange[0].Date)
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := newTestServer(t)
	var wg sync.WaitGroup

	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				srv.Update([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)))
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
				w := httptest.NewRecorder()
				srv.handleCalendarRequest(w, req)

				if code := w.Code; code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := newTestServer(t)
	srv.Port = port
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://127.0.0.1:" + port + "/calendar.ics"

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Initial state (503)
	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Build the feed
	require.NoError(t, srv.Refresh(ctx))

	// 3. Served content (200)
	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	// 4. Shutdown
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_StartValidation(t *testing.T) {
	srv := NewCalendarServer("", nil, nil)
	assert.EqualError(t, srv.Start(context.Background()), config.ErrPortRequired)

	srv.Port = "18098"
	assert.EqualError(t, srv.Start(context.Background()), config.ErrEngineMissing)
	assert.EqualError(t, srv.Refresh(context.Background()), config.ErrEngineMissing)
}

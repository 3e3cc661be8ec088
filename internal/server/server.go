package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/engine"
)

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// Labeler provides the localized strings attached to grid responses.
type Labeler interface {
	MoreLabel(n int) string
	WeekdayLabels(weekStart time.Weekday) []string
}

// CalendarServer exposes the engine over HTTP: an iCalendar feed for
// subscribing clients and a small JSON API for hosts.
type CalendarServer struct {
	// cache uses atomic.Pointer for lock-free reads of the ICS feed.
	// Subscribers poll the feed far more often than events change, so the
	// GET path never contends with Refresh the way it would on a RWMutex.
	cache  atomic.Pointer[cacheItem]
	Port   string
	Engine *engine.Engine
	Labels Labeler
}

// NewCalendarServer creates a new instance of the server.
func NewCalendarServer(port string, eng *engine.Engine, labels Labeler) *CalendarServer {
	return &CalendarServer{
		Port:   port,
		Engine: eng,
		Labels: labels,
	}
}

// Handler returns the routing table of the server.
func (s *CalendarServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteFeed, s.handleCalendarRequest)
	mux.HandleFunc(config.RouteGrid, s.handleGrid)
	mux.HandleFunc(config.RouteNavigate, s.handleNavigate)
	mux.HandleFunc(config.RouteListEvents, s.handleListEvents)
	mux.HandleFunc(config.RouteCreateEvent, s.handleCreateEvent)
	mux.HandleFunc(config.RouteGetEvent, s.handleGetEvent)
	mux.HandleFunc(config.RouteUpdateEvent, s.handleUpdateEvent)
	mux.HandleFunc(config.RouteDeleteEvent, s.handleDeleteEvent)
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *CalendarServer) Start(ctx context.Context) error {
	if err := config.ValidatePort(s.Port); err != nil {
		return err
	}
	if s.Engine == nil {
		return errors.New(config.ErrEngineMissing)
	}

	// The API is meant for a local host process only.
	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Refresh re-exports the stored events and swaps the served feed.
func (s *CalendarServer) Refresh(ctx context.Context) error {
	if s.Engine == nil {
		return errors.New(config.ErrEngineMissing)
	}
	// DTSTAMP comes from the engine clock.
	data, err := engine.ExportICS(ctx, s.Engine.Events().ListAll(), s.Engine.Clock.Now())
	if err != nil {
		return err
	}
	s.Update(data)
	return nil
}

// Update atomically replaces the served content.
func (s *CalendarServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	// A content hash keeps the ETag stable across identical rebuilds.
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	lastMod := time.Now().UTC().Format(http.TimeFormat)

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: lastMod,
	}

	// Concurrent readers see either the old or the new complete item.
	s.cache.Store(item)

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
// Method filtering is left to the mux pattern; GET patterns also match HEAD.
func (s *CalendarServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	// 1. Load Data (Atomic / Lock-Free)
	item := s.cache.Load()

	// 2. Readiness Check: nothing is served before the first Refresh.
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	// 3. Set Response Headers
	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 4. Check Conditional Headers (Client Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				// Not newer than the client's copy.
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 5. Serve Content (HEAD stops at the headers)
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

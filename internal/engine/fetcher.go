package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/tartampluch/go-agenda/internal/config"
)

// FeedFetcher retrieves a remote iCalendar feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements FeedFetcher over net/http.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch downloads the feed at targetURL. Query parameters are stripped from
// logs since they may carry tokens, and the body is capped at config.MaxSeedSize.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	// 1. URL Validation: only plain http(s) feeds are fetched.
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	// 2. Logger Setup: the query string may hold a token, so it never reaches the logs.
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.Debug(config.MsgFetchStart)

	// 3. Request Construction
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	// 4. Execution and Status Check
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close() // The caller never sees this body.
		log.Warn(config.MsgFetchBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrFetchStatus, resp.Status)
	}

	log.Info(config.MsgFetchDone, slog.Int64(config.LogKeyLength, resp.ContentLength))

	// 5. Size Limit: reads stop at MaxSeedSize but Close still reaches the socket.
	return &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, config.MaxSeedSize),
		Closer: resp.Body,
	}, nil
}

// limitedReadCloser pairs a size-limited reader with the original body closer.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// OpenSeed opens source, which is either a local path or an http(s) URL.
// Remote sources go through fetcher with the given credentials.
func OpenSeed(ctx context.Context, source, user, pass string, fetcher FeedFetcher) (io.ReadCloser, error) {
	if !isRemote(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrSeedOpen, err)
		}
		return f, nil
	}
	if fetcher == nil {
		return nil, errors.New(config.ErrFetcherMissing)
	}
	rc, err := fetcher.Fetch(ctx, source, user, pass)
	if err != nil {
		// Cancellation is reported as is so callers can tell it from a bad feed.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrSeedOpen, err)
	}
	return rc, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, config.SchemeHTTP+"://") || strings.HasPrefix(lower, config.SchemeHTTPS+"://")
}

// LoadSeed imports every VEVENT of source into c and returns how many events
// were created. Drafts the coordinator rejects are logged and skipped.
func LoadSeed(ctx context.Context, c *Coordinator, source, user, pass string, fetcher FeedFetcher) (int, error) {
	rc, err := OpenSeed(ctx, source, user, pass, fetcher)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	drafts, err := ImportICS(ctx, rc, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrSeedImport, err)
	}

	// One bad VEVENT does not abort the whole seed.
	loaded := 0
	for _, d := range drafts {
		if _, err := c.Create(d); err != nil {
			slog.Warn(config.MsgSkippedVEvent,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyDate, d.Date,
				config.LogKeyTime, d.Time,
				config.LogKeyError, err,
			)
			continue
		}
		loaded++
	}

	slog.Info(config.MsgSeedLoaded,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, loaded,
	)
	return loaded, nil
}

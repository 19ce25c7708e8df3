// Package fetch provides a polite web page fetcher for URL ingestion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.PageFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 10 << 20 // 10 MiB
	DefaultUserAgent   = "loreweave/1.0 (+https://github.com/loreweave/loreweave)"

	// hostRate throttles requests per host (requests per second).
	hostRate  = 1.0
	hostBurst = 2
)

// Config holds configuration for the page fetcher.
type Config struct {
	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// MaxBodySize caps the response body in bytes (default: 10 MiB).
	MaxBodySize int64

	// UserAgent identifies the fetcher to remote servers.
	UserAgent string
}

// Fetcher retrieves web pages with per-host rate limiting, so bursts of
// URL tasks against one site stay polite.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
	userAgent   string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a new page fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxBodySize: cfg.MaxBodySize,
		userAgent:   cfg.UserAgent,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves the page at the given URL. Transport failures and
// server errors are transient; client errors are terminal.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*driven.FetchedPage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.Validation(fmt.Errorf("parsing url %q: %w", rawURL, err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, domain.Validation(fmt.Errorf("unsupported url scheme %q: %w", parsed.Scheme, domain.ErrInvalidInput))
	}

	if err := f.limiter(parsed.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, domain.Validation(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("fetching %s: %w", rawURL, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.Transient(fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, domain.Transient(fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, domain.Validation(fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("reading %s: %w", rawURL, err))
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &driven.FetchedPage{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}

// limiter returns the rate limiter for a host, creating it on first use.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(hostRate), hostBurst)
		f.limiters[host] = l
	}
	return l
}

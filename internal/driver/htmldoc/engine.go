// Package htmldoc implements driver.Session by fetching pages over HTTP and
// evaluating XPath locators against the parsed HTML. It runs no scripts:
// forms are submitted as GET requests and links are followed by href.
package htmldoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/cache"
	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/util"
)

var (
	// ErrDisallowed is returned when robots.txt forbids a navigation
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrClosed is returned by operations on a closed session
	ErrClosed = errors.New("session closed")
)

// backoff is swapped in tests to avoid real sleeps between retries
var backoff retryablehttp.Backoff = retryablehttp.DefaultBackoff

// Options configures an Engine
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRetries   int
	Proxy        func(*http.Request) (*url.URL, error)

	Cache   cache.Cache         // optional
	Limiter *util.Limiter       // optional
	Robots  *util.RobotsChecker // optional, nil disables robots.txt checks
	Logger  *zap.Logger
}

// Engine opens fetch-and-parse sessions. It is safe to share between sessions.
type Engine struct {
	client *retryablehttp.Client
	opts   Options
	log    *zap.Logger
}

// New creates an Engine
func New(opts Options) *Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4_000_000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.MaxRetries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Backoff = func(lo, hi time.Duration, attempt int, resp *http.Response) time.Duration {
		return backoff(lo, hi, attempt, resp)
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	client.HTTPClient.Timeout = opts.Timeout
	client.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("stopped after 5 redirects")
		}
		return nil
	}
	if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok && opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	return &Engine{client: client, opts: opts, log: opts.Logger}
}

// Open starts an empty session positioned on about:blank
func (e *Engine) Open(ctx context.Context) (driver.Session, error) {
	return &Session{engine: e, url: "about:blank"}, nil
}

// page is a fetched document as stored in the cache
type page struct {
	URL    string `json:"url"` // final URL after redirects
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

func (e *Engine) load(ctx context.Context, rawURL string) (*page, error) {
	if e.opts.Robots != nil {
		allowed, delay, err := e.opts.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if u, err := url.Parse(rawURL); err == nil && e.opts.Limiter.ApplyCrawlDelay(u.Host, delay) {
			e.log.Debug("applied crawl delay", zap.String("host", u.Host), zap.Duration("delay", delay))
		}
	}

	key := cache.PageKey(rawURL)
	if e.opts.Cache != nil {
		if data, ok := e.opts.Cache.Get(key); ok {
			var cached page
			if err := json.Unmarshal(data, &cached); err == nil {
				e.log.Debug("page cache hit", zap.String("url", rawURL))
				return &cached, nil
			}
			_ = e.opts.Cache.Delete(key)
		}
	}

	if err := e.opts.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	p, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if e.opts.Cache != nil && p.Status == http.StatusOK {
		if data, err := json.Marshal(p); err == nil {
			if err := e.opts.Cache.Set(key, data, 0); err != nil {
				e.log.Warn("page cache write failed", zap.String("url", rawURL), zap.Error(err))
			}
		}
	}

	return p, nil
}

func (e *Engine) fetch(ctx context.Context, rawURL string) (*page, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The missing-article page is served with 404 and is still a document
	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, fmt.Errorf("fetch %s: unexpected status: %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	e.log.Debug("fetched page",
		zap.String("url", rawURL),
		zap.String("final_url", finalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &page{URL: finalURL, Status: resp.StatusCode, Body: body}, nil
}

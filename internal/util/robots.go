package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether our user agent may fetch a URL.
// Each origin's robots.txt is read once per checker. An origin whose
// robots.txt cannot be fetched or parsed is remembered as allowing everything.
type RobotsChecker struct {
	client *http.Client
	agent  string

	mu      sync.Mutex
	origins map[string]*originRules
}

// originRules is the parsed robots.txt of one scheme://host; nil data allows all
type originRules struct {
	data *robotstxt.RobotsData
}

func (o *originRules) allows(path, agent string) bool {
	return o.data == nil || o.data.TestAgent(path, agent)
}

func (o *originRules) crawlDelay(agent string) time.Duration {
	if o.data == nil {
		return 0
	}
	if group := o.data.FindGroup(agent); group != nil {
		return group.CrawlDelay
	}
	return 0
}

// NewRobotsChecker creates a checker; a nil transport uses http.DefaultTransport
func NewRobotsChecker(userAgent string, timeout time.Duration, transport http.RoundTripper) *RobotsChecker {
	return &RobotsChecker{
		client:  &http.Client{Timeout: timeout, Transport: transport},
		agent:   NormalizeUserAgent(userAgent),
		origins: make(map[string]*originRules),
	}
}

// CanFetch returns (allowed, crawlDelay, error). Only a URL without a host is an error.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return false, 0, fmt.Errorf("parse URL: missing host in %q", rawURL)
	}

	rules := r.rulesFor(ctx, u.Scheme+"://"+u.Host)
	return rules.allows(requestPath(u), r.agent), rules.crawlDelay(r.agent), nil
}

// IsAllowed returns only the allowed status
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	allowed, _, _ := r.CanFetch(ctx, rawURL)
	return allowed
}

// Clear forgets every origin read so far
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = make(map[string]*originRules)
}

func (r *RobotsChecker) rulesFor(ctx context.Context, origin string) *originRules {
	r.mu.Lock()
	rules, ok := r.origins[origin]
	r.mu.Unlock()
	if ok {
		return rules
	}

	data, err := r.fetch(ctx, origin+"/robots.txt")
	rules = &originRules{data: data}
	if err != nil && ctx.Err() != nil {
		// cancelled, not unreachable: ask again next time
		return rules
	}

	r.mu.Lock()
	r.origins[origin] = rules
	r.mu.Unlock()
	return rules
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// requestPath is the path plus query that robots rules are matched against
func requestPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// NormalizeUserAgent reduces a user agent string to its product token
// ("Scientia/0.1 (+url)" -> "Scientia") for robots.txt group matching
func NormalizeUserAgent(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	product, _, _ := strings.Cut(fields[0], "/")
	return product
}

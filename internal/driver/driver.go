// Package driver defines the document session the lookup core runs against.
//
// Locators are XPath expressions evaluated against the rendered document.
// Two engines implement Session: a real Chromium page (package browser) and
// a fetch-and-parse engine (package htmldoc).
package driver

import (
	"context"
	"time"
)

// Element is a node inside the current document
type Element interface {
	// Text returns the node's text content, including visually hidden descendants
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	// Find evaluates a relative locator; returns nil, nil when nothing matches
	Find(ctx context.Context, locator string) (Element, error)
	Fill(ctx context.Context, value string) error
	// Submit submits the enclosing form
	Submit(ctx context.Context) error
	// Activate follows the element (click)
	Activate(ctx context.Context) error
}

// Session is one open document view. Exactly one document is current at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	ContainsText(ctx context.Context, needle string) (bool, error)
	// FindElement returns nil, nil when nothing matches
	FindElement(ctx context.Context, locator string) (Element, error)
	FindElements(ctx context.Context, locator string) ([]Element, error)
	CurrentURL() string
	Close() error
}

// Opener starts a new session. The caller owns the returned session and must Close it.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx)
func (f OpenerFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// sleep is swapped in tests
var sleep = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// AwaitURLChange polls the session until its URL differs from previous.
// It is a soft wait: it reports whether the URL changed and never fails.
func AwaitURLChange(ctx context.Context, s Session, previous string, timeout, tick time.Duration) bool {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}

	polls := int(timeout / tick)
	for i := 0; ; i++ {
		if s.CurrentURL() != previous {
			return true
		}
		if i >= polls || ctx.Err() != nil {
			return false
		}
		sleep(ctx, tick)
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/util"
)

// Session is one Chromium page. It owns the whole Playwright stack behind it.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	limiter *util.Limiter
	log     *zap.Logger
	closed  bool
}

// xpath prefixes a locator for Playwright's selector engine
func xpath(locator string) string {
	if strings.HasPrefix(locator, "xpath=") {
		return locator
	}
	return "xpath=" + locator
}

// Navigate loads url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx, url); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	status := 0
	if resp != nil {
		status = resp.Status()
	}
	s.log.Debug("navigated", zap.String("url", url), zap.String("final_url", s.page.URL()), zap.Int("status", status))
	return nil
}

// settle waits for a navigation started by a click or key press to finish loading
func (s *Session) settle() {
	if err := s.page.WaitForLoadState(); err != nil {
		s.log.Debug("load state wait failed", zap.Error(err))
	}
}

// ContainsText searches the body text content, hidden nodes included
func (s *Session) ContainsText(ctx context.Context, needle string) (bool, error) {
	s.settle()
	body, err := s.page.QuerySelector("body")
	if err != nil {
		return false, fmt.Errorf("body query failed: %w", err)
	}
	if body == nil {
		return false, nil
	}

	content, err := body.TextContent()
	if err != nil {
		return false, fmt.Errorf("text extraction failed: %w", err)
	}
	return strings.Contains(content, needle), nil
}

func (s *Session) FindElement(ctx context.Context, locator string) (driver.Element, error) {
	s.settle()
	handle, err := s.page.QuerySelector(xpath(locator))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", locator, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &element{s: s, handle: handle}, nil
}

func (s *Session) FindElements(ctx context.Context, locator string) ([]driver.Element, error) {
	s.settle()
	handles, err := s.page.QuerySelectorAll(xpath(locator))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", locator, err)
	}

	elements := make([]driver.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &element{s: s, handle: h})
	}
	return elements, nil
}

func (s *Session) CurrentURL() string {
	return s.page.URL()
}

// Close tears down page, context, browser and the Playwright driver, in that order
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Page and context go down with the browser; their errors are not actionable
	_ = s.page.Close()
	_ = s.context.Close()

	var errs []error
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}

	s.log.Debug("browser session closed")
	return errors.Join(errs...)
}

type element struct {
	s      *Session
	handle playwright.ElementHandle
}

// Text uses textContent, which includes display:none descendants
func (e *element) Text(ctx context.Context) (string, error) {
	content, err := e.handle.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return content, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("get attribute %q: %w", name, err)
	}
	return value, nil
}

func (e *element) Find(ctx context.Context, locator string) (driver.Element, error) {
	handle, err := e.handle.QuerySelector(xpath(locator))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", locator, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &element{s: e.s, handle: handle}, nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	if err := e.handle.Fill(value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Submit presses Enter in the element, the way a user submits a search box
func (e *element) Submit(ctx context.Context) error {
	if err := e.handle.Press("Enter"); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	return nil
}

func (e *element) Activate(ctx context.Context) error {
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

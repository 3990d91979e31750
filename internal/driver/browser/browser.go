// Package browser implements driver.Session on a Chromium page driven by Playwright.
package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/util"
)

// Options configures a Launcher
type Options struct {
	Headless          bool
	InstallDrivers    bool // download the driver and Chromium on first use
	NavigationTimeout time.Duration
	Proxy             string // proxy server URL, empty for direct
	UserAgent         string

	Limiter *util.Limiter
	Logger  *zap.Logger
}

// Launcher starts one Chromium instance per session
type Launcher struct {
	opts Options
	log  *zap.Logger
}

// NewLauncher creates a Launcher
func NewLauncher(opts Options) *Launcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Launcher{opts: opts, log: opts.Logger}
}

// Open installs (if configured) and starts Playwright, then opens a page.
// Everything acquired so far is released when a later step fails.
func (l *Launcher) Open(ctx context.Context) (driver.Session, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if l.opts.InstallDrivers {
		l.log.Debug("installing playwright driver")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	}
	if l.opts.Proxy != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: l.opts.Proxy}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if l.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(l.opts.UserAgent)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	timeoutMS := float64(l.opts.NavigationTimeout.Milliseconds())
	page.SetDefaultTimeout(timeoutMS)
	page.SetDefaultNavigationTimeout(timeoutMS)

	l.log.Debug("browser session started", zap.Bool("headless", l.opts.Headless))

	return &Session{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		limiter: l.opts.Limiter,
		log:     l.log,
	}, nil
}

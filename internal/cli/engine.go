package cli

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/cache"
	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/driver/browser"
	"github.com/ppiankov/scientia/internal/driver/htmldoc"
	"github.com/ppiankov/scientia/internal/extract"
	"github.com/ppiankov/scientia/internal/locate"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/narrator"
	"github.com/ppiankov/scientia/internal/pipeline"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/util"
)

// deps are the shared collaborators of one command run
type deps struct {
	opener driver.Opener
	robots *util.RobotsChecker
}

// newDeps builds the document driver selected by browser.engine.
// Both engines share one per-host limiter; the http engine also gets the
// page cache, proxy and (when enabled) robots.txt checks.
func newDeps(cfg *model.Config, log *zap.Logger) (*deps, error) {
	limiter := util.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	proxy := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy)

	var robots *util.RobotsChecker
	if cfg.HTTP.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, &http.Transport{Proxy: proxy})
	}

	switch cfg.Browser.Engine {
	case model.EngineBrowser:
		return &deps{
			opener: browser.NewLauncher(browser.Options{
				Headless:          cfg.Browser.Headless,
				InstallDrivers:    cfg.Browser.InstallDrivers,
				NavigationTimeout: cfg.Browser.NavigationTimeout,
				Proxy:             util.BrowserProxy(cfg.Source.BaseURL, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy),
				UserAgent:         cfg.HTTP.UserAgent,
				Limiter:           limiter,
				Logger:            log.Named("browser"),
			}),
			robots: robots,
		}, nil

	case model.EngineHTTP:
		return &deps{
			opener: htmldoc.New(htmldoc.Options{
				UserAgent:    cfg.HTTP.UserAgent,
				Timeout:      cfg.HTTP.Timeout,
				MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
				MaxRetries:   cfg.HTTP.MaxRetries,
				Proxy:        proxy,
				Cache:        cache.FromConfig(cfg.Cache),
				Limiter:      limiter,
				Robots:       robots,
				Logger:       log.Named("http"),
			}),
			robots: robots,
		}, nil
	}
	return nil, fmt.Errorf("unknown engine %q", cfg.Browser.Engine)
}

// newPipeline wires the locator chain, the extractor and the narrator around d
func newPipeline(cfg *model.Config, d *deps, ui prompt.Interactor, n narrator.Narrator, log *zap.Logger) *pipeline.Pipeline {
	layout := source.Wikipedia(cfg.Source.BaseURL)

	locator := locate.New(locate.Config{
		Layout:               layout,
		UI:                   ui,
		Settle:               locate.Settle{Timeout: cfg.Browser.SettleTimeout, Tick: cfg.Browser.PollInterval},
		SearchEngineFallback: cfg.Lookup.SearchEngineFallback,
		SearchEngineURL:      cfg.Lookup.SearchEngineURL,
		Robots:               d.robots,
		Logger:               log.Named("locate"),
	})
	extractor := extract.NewExtractor(layout, log.Named("extract"))

	return pipeline.NewPipeline(d.opener, locator, extractor, n, log)
}

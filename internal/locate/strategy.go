package locate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/util"
)

const (
	StrategyDirectGuess       = "direct-guess"
	StrategySearchEngine      = "search-engine"
	StrategyInteractiveSearch = "interactive-search"
)

// pageCheck decides whether the current document is the one asked for
type pageCheck struct {
	layout source.Layout
	ui     prompt.Interactor
}

// confirm validates the current page: a missing article fails, a title not
// containing the name is put to the user
func (c *pageCheck) confirm(ctx context.Context, name string, sess driver.Session, strategy string) Outcome {
	missing, err := sess.ContainsText(ctx, c.layout.MissingArticleText)
	if err != nil {
		return retry("read page", err)
	}
	if missing {
		return retry("no article with this exact name", nil)
	}

	heading, err := sess.FindElement(ctx, c.layout.Title)
	if err != nil {
		return retry("find title", err)
	}
	if heading == nil {
		return retry("page has no article title", nil)
	}
	title, err := heading.Text(ctx)
	if err != nil {
		return retry("read title", err)
	}
	title = normalizeName(title)

	doc := &model.ConfirmedDocument{URL: sess.CurrentURL(), Title: title, Strategy: strategy}
	if strings.Contains(title, name) {
		return succeeded(doc)
	}

	accept, err := c.ui.Confirm(fmt.Sprintf("Are you looking for this web page %q?", title), false)
	if err != nil {
		return abort("confirm page", fmt.Errorf("confirm page: %w", err))
	}
	if !accept {
		return retry(fmt.Sprintf("title %q rejected", title), nil)
	}
	return succeeded(doc)
}

// DirectGuess navigates straight to the canonical article URL for the name
type DirectGuess struct {
	Layout source.Layout
	check  *pageCheck
}

func (s *DirectGuess) Name() string { return StrategyDirectGuess }

func (s *DirectGuess) Attempt(ctx context.Context, name string, sess driver.Session) Outcome {
	if err := sess.Navigate(ctx, s.Layout.ArticleURL(name)); err != nil {
		if interrupted(ctx, err) {
			return abort("navigation interrupted", err)
		}
		return retry("navigate to article", err)
	}
	return s.check.confirm(ctx, name, sess, s.Name())
}

// SearchEngine asks an external search engine for its first hit on the
// encyclopedia host. Upstream engines answer automated sessions with a
// challenge page, so this strategy is opt-in.
type SearchEngine struct {
	Layout    source.Layout
	EngineURL string
	Robots    *util.RobotsChecker // nil skips the robots.txt check
	Settle    Settle
	check     *pageCheck
}

func (s *SearchEngine) Name() string { return StrategySearchEngine }

func (s *SearchEngine) Attempt(ctx context.Context, name string, sess driver.Session) Outcome {
	target := s.Layout.SearchEngineURL(s.EngineURL, name)

	if s.Robots != nil && !s.Robots.IsAllowed(ctx, target) {
		return retry("search engine disallows automated queries", nil)
	}

	if err := sess.Navigate(ctx, target); err != nil {
		if interrupted(ctx, err) {
			return abort("navigation interrupted", err)
		}
		return retry("navigate to search engine", err)
	}

	consent, err := sess.FindElement(ctx, s.Layout.SearchEngineConsent)
	if err != nil {
		return retry("find redirect link", err)
	}
	if consent == nil {
		return retry("search engine offered no redirect link", nil)
	}

	previous := sess.CurrentURL()
	if err := consent.Activate(ctx); err != nil {
		return retry("follow redirect link", err)
	}
	s.Settle.await(ctx, sess, previous)

	return s.check.confirm(ctx, name, sess, s.Name())
}

// InteractiveSearch submits the name to the encyclopedia's own search.
// A redirect away from the results page is accepted as is; a results page
// is handed to the Disambiguator.
type InteractiveSearch struct {
	Layout        source.Layout
	Settle        Settle
	Disambiguator *Disambiguator
}

func (s *InteractiveSearch) Name() string { return StrategyInteractiveSearch }

func (s *InteractiveSearch) Attempt(ctx context.Context, name string, sess driver.Session) Outcome {
	input, err := s.searchInput(ctx, sess)
	if err != nil {
		if interrupted(ctx, err) {
			return abort("navigation interrupted", err)
		}
		return retry("open search", err)
	}

	if err := input.Fill(ctx, name); err != nil {
		return retry("type query", err)
	}

	previous := sess.CurrentURL()
	if err := input.Submit(ctx); err != nil {
		if interrupted(ctx, err) {
			return abort("search interrupted", err)
		}
		return retry("submit query", err)
	}
	s.Settle.await(ctx, sess, previous)

	// Anything but the results page is the article the search committed to,
	// even when it is the page the search started from
	if current := sess.CurrentURL(); !s.Layout.IsSearchResultsURL(current) {
		return succeeded(&model.ConfirmedDocument{
			URL:      current,
			Title:    readTitle(ctx, sess, s.Layout),
			Strategy: s.Name(),
		})
	}

	candidates, hasSuggestion, err := s.Disambiguator.Enumerate(ctx, sess)
	if err != nil {
		return retry("read search results", err)
	}

	doc, err := s.Disambiguator.Choose(ctx, sess, name, candidates, hasSuggestion)
	if err != nil {
		return abort("no document chosen", err)
	}
	return succeeded(doc)
}

// searchInput returns the search box, opening the search page when the
// current document has none
func (s *InteractiveSearch) searchInput(ctx context.Context, sess driver.Session) (driver.Element, error) {
	if input, err := sess.FindElement(ctx, s.Layout.SearchInput); err == nil && input != nil {
		return input, nil
	}

	if err := sess.Navigate(ctx, s.Layout.SearchPageURL()); err != nil {
		return nil, err
	}
	input, err := sess.FindElement(ctx, s.Layout.SearchInput)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("search page has no search input")
	}
	return input, nil
}

// readTitle returns the displayed title, or "" when the page has none
func readTitle(ctx context.Context, sess driver.Session, layout source.Layout) string {
	heading, err := sess.FindElement(ctx, layout.Title)
	if err != nil || heading == nil {
		return ""
	}
	title, err := heading.Text(ctx)
	if err != nil {
		return ""
	}
	return normalizeName(title)
}

package locate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/driver/htmldoc"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/util"
	"github.com/ppiankov/scientia/internal/wikitest"
)

var testSettle = Settle{Timeout: 50 * time.Millisecond, Tick: 10 * time.Millisecond}

// scriptedUI answers prompts from fixed scripts and records what was asked
type scriptedUI struct {
	confirms []bool
	choices  []string

	confirmed []string
	menus     []string
	rejected  []error
}

func (u *scriptedUI) Confirm(message string, def bool) (bool, error) {
	u.confirmed = append(u.confirmed, message)
	if len(u.confirms) == 0 {
		return false, prompt.ErrNoInput
	}
	answer := u.confirms[0]
	u.confirms = u.confirms[1:]
	return answer, nil
}

func (u *scriptedUI) ChooseInt(message string, validate func(string) (int, error)) (int, error) {
	u.menus = append(u.menus, message)
	for len(u.choices) > 0 {
		raw := u.choices[0]
		u.choices = u.choices[1:]
		n, err := validate(raw)
		if err == nil {
			return n, nil
		}
		u.rejected = append(u.rejected, err)
	}
	return 0, prompt.ErrNoInput
}

func (u *scriptedUI) Ask(message, def string) (string, error) { return def, nil }
func (u *scriptedUI) Page([]string) error                     { return nil }

func setup(t *testing.T, ui prompt.Interactor) (*wikitest.Server, *Locator, driver.Session) {
	t.Helper()

	wiki := wikitest.NewScientists(t)
	loc := New(Config{Layout: source.Wikipedia(wiki.URL), UI: ui, Settle: testSettle})

	sess, err := htmldoc.New(htmldoc.Options{UserAgent: "Scientia-Test/1.0", Timeout: 5 * time.Second}).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return wiki, loc, sess
}

func searchHits(wiki *wikitest.Server) int {
	return wiki.Hits("/w/index.php") + wiki.Hits("/wiki/Special:Search")
}

func TestLocate_DirectGuessSkipsSearch(t *testing.T) {
	for _, name := range []string{"Marie Curie", "Isaac Newton", "Albert Einstein", "Charles Darwin"} {
		t.Run(name, func(t *testing.T) {
			ui := &scriptedUI{}
			wiki, loc, sess := setup(t, ui)

			doc, err := loc.Locate(context.Background(), name, sess)
			if err != nil {
				t.Fatalf("Locate() error: %v", err)
			}
			if doc.Strategy != StrategyDirectGuess {
				t.Errorf("strategy = %q, want %q", doc.Strategy, StrategyDirectGuess)
			}
			if doc.URL != wiki.ArticleURL(name) || doc.Title != name {
				t.Errorf("unexpected document %+v", doc)
			}
			if sess.CurrentURL() != doc.URL {
				t.Error("session must be left on the confirmed document")
			}
			if n := searchHits(wiki); n != 0 {
				t.Errorf("interactive search ran %d times", n)
			}
			if len(ui.confirmed)+len(ui.menus) != 0 {
				t.Error("no prompt expected when the title matches")
			}
		})
	}
}

func TestLocate_TitleMismatchAccepted(t *testing.T) {
	ui := &scriptedUI{confirms: []bool{true}}
	wiki, loc, sess := setup(t, ui)
	wiki.AddAlias("A. Einstein", "Albert Einstein")

	doc, err := loc.Locate(context.Background(), "A. Einstein", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.Title != "Albert Einstein" || doc.Strategy != StrategyDirectGuess {
		t.Errorf("unexpected document %+v", doc)
	}
	if len(ui.confirmed) != 1 || ui.confirmed[0] != `Are you looking for this web page "Albert Einstein"?` {
		t.Errorf("unexpected confirmation prompts: %q", ui.confirmed)
	}
}

func TestLocate_TitleMismatchRejectedFallsThrough(t *testing.T) {
	ui := &scriptedUI{confirms: []bool{false}}
	wiki, loc, sess := setup(t, ui)
	wiki.AddAlias("A. Einstein", "Albert Einstein")
	wiki.AddSearch("A. Einstein", wikitest.Results{Titles: []string{"Albert Einstein"}})
	ui.choices = []string{"1"}

	doc, err := loc.Locate(context.Background(), "A. Einstein", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.Strategy != StrategyInteractiveSearch {
		t.Errorf("strategy = %q, want interactive search", doc.Strategy)
	}
	if searchHits(wiki) != 1 {
		t.Errorf("expected one search request, got %d", searchHits(wiki))
	}
}

func TestLocate_SearchRedirectAcceptedDirectly(t *testing.T) {
	ui := &scriptedUI{}
	wiki, loc, sess := setup(t, ui)
	wiki.AddSearch("Newton physicist", wikitest.Results{Redirect: "Isaac Newton"})

	doc, err := loc.Locate(context.Background(), "Newton physicist", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("Isaac Newton") || doc.Strategy != StrategyInteractiveSearch {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Title != "Isaac Newton" {
		t.Errorf("title = %q", doc.Title)
	}
	// The redirect is not validated against the name
	if len(ui.confirmed)+len(ui.menus) != 0 {
		t.Errorf("expected no prompts, got confirms=%q menus=%d", ui.confirmed, len(ui.menus))
	}
}

func TestLocate_SearchBackToRejectedPageIsAccepted(t *testing.T) {
	ui := &scriptedUI{confirms: []bool{false}}
	wiki, loc, sess := setup(t, ui)
	wiki.AddAlias("A. Einstein", "Albert Einstein")
	wiki.AddSearch("A. Einstein", wikitest.Results{Redirect: "A. Einstein"})

	doc, err := loc.Locate(context.Background(), "A. Einstein", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("A. Einstein") || doc.Strategy != StrategyInteractiveSearch {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Title != "Albert Einstein" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(ui.confirmed) != 1 || len(ui.menus) != 0 {
		t.Errorf("search redirect must not be validated: confirms=%q menus=%d", ui.confirmed, len(ui.menus))
	}
}

func TestLocate_DisambiguationRecursesOnSuggestion(t *testing.T) {
	ui := &scriptedUI{choices: []string{"1", "1"}}
	wiki, loc, sess := setup(t, ui)

	doc, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("Albert Einstein") {
		t.Errorf("URL = %q", doc.URL)
	}
	if len(ui.menus) != 2 {
		t.Fatalf("expected 2 menus, got %d", len(ui.menus))
	}

	first := "Which of the following do you choose?\n1) Albert Einstein\n2) Einstein family\n0) exit\n"
	if ui.menus[0] != first {
		t.Errorf("first menu = %q, want %q", ui.menus[0], first)
	}
	if !strings.Contains(ui.menus[1], "1) Albert Einstein\n2) Einstein family\n") {
		t.Errorf("second menu = %q", ui.menus[1])
	}
}

func TestLocate_RecursionDepthIsOne(t *testing.T) {
	ui := &scriptedUI{choices: []string{"1", "1", "1"}}
	wiki, loc, sess := setup(t, ui)
	wiki.AddSearch("Albert Einstien", wikitest.Results{Suggestion: "Albert Einsteen"})
	wiki.AddSearch("Albert Einsteen", wikitest.Results{Suggestion: "Albert Einstein", Titles: []string{"Einstein family"}})

	doc, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if len(ui.menus) != 2 {
		t.Errorf("expected exactly 2 menus, got %d", len(ui.menus))
	}
	if !source.Wikipedia(wiki.URL).IsSearchResultsURL(doc.URL) {
		t.Errorf("flow should end on the page the second choice opened, got %q", doc.URL)
	}
}

func TestLocate_SuggestionOpeningArticleDoesNotRecurse(t *testing.T) {
	ui := &scriptedUI{choices: []string{"1"}}
	wiki, loc, sess := setup(t, ui)
	wiki.AddSearch("Marie Curey", wikitest.Results{
		Suggestion:        "Marie Curie",
		SuggestionArticle: true,
		Titles:            []string{"Charles Darwin"},
	})

	doc, err := loc.Locate(context.Background(), "Marie Curey", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("Marie Curie") || doc.Title != "Marie Curie" {
		t.Errorf("unexpected document %+v", doc)
	}
	if len(ui.menus) != 1 {
		t.Errorf("suggestion landed on an article, expected 1 menu, got %d", len(ui.menus))
	}
}

func TestLocate_ChoosingNonSuggestionDoesNotRecurse(t *testing.T) {
	ui := &scriptedUI{choices: []string{"2"}}
	wiki, loc, sess := setup(t, ui)

	doc, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("Einstein family") {
		t.Errorf("URL = %q", doc.URL)
	}
	if len(ui.menus) != 1 {
		t.Errorf("expected 1 menu, got %d", len(ui.menus))
	}
}

func TestLocate_InvalidSelectionReprompts(t *testing.T) {
	ui := &scriptedUI{choices: []string{"two", "-1", "3", "2"}}
	wiki, loc, sess := setup(t, ui)

	doc, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if doc.URL != wiki.ArticleURL("Einstein family") {
		t.Errorf("URL = %q", doc.URL)
	}
	if len(ui.rejected) != 3 {
		t.Fatalf("expected 3 rejected answers, got %d", len(ui.rejected))
	}
	if !strings.Contains(ui.rejected[2].Error(), "between 0 and 2") {
		t.Errorf("out-of-range error should report the bound: %v", ui.rejected[2])
	}
}

func TestLocate_CancelYieldsNotFound(t *testing.T) {
	ui := &scriptedUI{choices: []string{"0"}}
	wiki, loc, sess := setup(t, ui)

	_, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	var nf *model.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Name != "Albert Einstien" {
		t.Errorf("Name = %q", nf.Name)
	}
	if wiki.Hits("/wiki/Einstein_family") != 0 || wiki.Hits("/wiki/Albert_Einstein") != 0 {
		t.Error("cancel must not open any candidate")
	}
}

func TestLocate_ZeroCandidatesNotFound(t *testing.T) {
	ui := &scriptedUI{}
	_, loc, sess := setup(t, ui)

	_, err := loc.Locate(context.Background(), "Zzyzx Qwerty", sess)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(ui.menus) != 0 {
		t.Error("no menu expected without candidates")
	}
}

func TestLocate_PromptEOFIsNotNotFound(t *testing.T) {
	ui := &scriptedUI{}
	_, loc, sess := setup(t, ui)

	_, err := loc.Locate(context.Background(), "Albert Einstien", sess)
	if !errors.Is(err, prompt.ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	if errors.Is(err, model.ErrNotFound) {
		t.Error("closed input must not look like a cancel")
	}
}

func TestLocate_EmptyName(t *testing.T) {
	_, loc, sess := setup(t, &scriptedUI{})
	if _, err := loc.Locate(context.Background(), "   ", sess); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// fixedStrategy returns a canned outcome and counts attempts
type fixedStrategy struct {
	name     string
	outcome  Outcome
	attempts int
}

func (s *fixedStrategy) Name() string { return s.name }

func (s *fixedStrategy) Attempt(context.Context, string, driver.Session) Outcome {
	s.attempts++
	return s.outcome
}

func TestLocator_Chain(t *testing.T) {
	doc := &model.ConfirmedDocument{URL: "https://example.org/wiki/X", Strategy: "b"}
	boom := errors.New("boom")

	tests := []struct {
		name     string
		outcomes []Outcome
		attempts []int
		wantDoc  bool
		wantErr  error
	}{
		{"first succeeds", []Outcome{succeeded(doc), retry("x", nil)}, []int{1, 0}, true, nil},
		{"retry falls through", []Outcome{retry("x", nil), succeeded(doc)}, []int{1, 1}, true, nil},
		{"abort short-circuits", []Outcome{abort("x", nil), succeeded(doc)}, []int{1, 0}, false, model.ErrNotFound},
		{"abort surfaces cause", []Outcome{abort("x", boom), succeeded(doc)}, []int{1, 0}, false, boom},
		{"exhausted", []Outcome{retry("x", nil), retry("y", nil)}, []int{1, 1}, false, model.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategies := make([]Strategy, len(tt.outcomes))
			fixed := make([]*fixedStrategy, len(tt.outcomes))
			for i, o := range tt.outcomes {
				fixed[i] = &fixedStrategy{name: fmt.Sprint(i), outcome: o}
				strategies[i] = fixed[i]
			}

			got, err := NewLocator(nil, strategies...).Locate(context.Background(), "X", nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got != nil) != tt.wantDoc {
				t.Errorf("document = %v, want present=%v", got, tt.wantDoc)
			}
			for i, f := range fixed {
				if f.attempts != tt.attempts[i] {
					t.Errorf("strategy %d attempted %d times, want %d", i, f.attempts, tt.attempts[i])
				}
			}
		})
	}
}

func TestLocator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fixedStrategy{outcome: succeeded(&model.ConfirmedDocument{})}
	if _, err := NewLocator(nil, s).Locate(ctx, "X", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.attempts != 0 {
		t.Error("no strategy should run on a canceled context")
	}
}

func TestNew_ChainOrder(t *testing.T) {
	names := func(l *Locator) []string {
		var out []string
		for _, s := range l.Strategies() {
			out = append(out, s.Name())
		}
		return out
	}

	got := strings.Join(names(New(Config{})), ",")
	if got != "direct-guess,interactive-search" {
		t.Errorf("default chain = %s", got)
	}

	got = strings.Join(names(New(Config{SearchEngineFallback: true})), ",")
	if got != "direct-guess,search-engine,interactive-search" {
		t.Errorf("chain with search engine = %s", got)
	}
}

// newLuckyServer imitates the search engine's redirect notice page
func newLuckyServer(t *testing.T, wiki *wikitest.Server, robots string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, robots)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fields := strings.Fields(r.URL.Query().Get("q"))
		title := strings.Join(fields[1:], " ") // drop site:
		_, _ = fmt.Fprintf(w, `<html><body><div>Redirect notice</div><div><a href="%s">%s</a></div></body></html>`,
			wiki.ArticleURL(title), wiki.ArticleURL(title))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSearchEngine_FollowsRedirectAndValidates(t *testing.T) {
	ui := &scriptedUI{}
	wiki, _, sess := setup(t, ui)
	lucky := newLuckyServer(t, wiki, "User-agent: *\nAllow: /\n")
	layout := source.Wikipedia(wiki.URL)

	strategy := &SearchEngine{
		Layout:    layout,
		EngineURL: lucky.URL + "/search",
		Robots:    util.NewRobotsChecker("Scientia-Test/1.0", time.Second, nil),
		Settle:    testSettle,
		check:     &pageCheck{layout: layout, ui: ui},
	}

	out := strategy.Attempt(context.Background(), "Charles Darwin", sess)
	if out.Kind != Success {
		t.Fatalf("outcome = %v (%s: %v)", out.Kind, out.Reason, out.Err)
	}
	if out.Document.URL != wiki.ArticleURL("Charles Darwin") || out.Document.Strategy != StrategySearchEngine {
		t.Errorf("unexpected document %+v", out.Document)
	}
}

func TestSearchEngine_RespectsRobots(t *testing.T) {
	ui := &scriptedUI{}
	wiki, _, sess := setup(t, ui)
	lucky := newLuckyServer(t, wiki, "User-agent: *\nDisallow: /search\n")
	layout := source.Wikipedia(wiki.URL)

	strategy := &SearchEngine{
		Layout:    layout,
		EngineURL: lucky.URL + "/search",
		Robots:    util.NewRobotsChecker("Scientia-Test/1.0", time.Second, nil),
		Settle:    testSettle,
		check:     &pageCheck{layout: layout, ui: ui},
	}

	out := strategy.Attempt(context.Background(), "Charles Darwin", sess)
	if out.Kind != Retry {
		t.Fatalf("outcome = %v, want retry", out.Kind)
	}
	if sess.CurrentURL() != "about:blank" {
		t.Error("a disallowed search engine must not be visited")
	}
}

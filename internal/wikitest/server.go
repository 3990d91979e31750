// Package wikitest serves a small fixture encyclopedia rendered like the
// Wikipedia desktop skin, for exercising lookups without network access.
package wikitest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Article is one fixture biography
type Article struct {
	Title string
	Born  string // machine date, e.g. 1867-11-07; empty omits the Born row
	Died  string // empty for living people
	Intro []string

	NoHeading     bool   // render no section heading after the intro
	DuplicateDied bool   // render the Died row twice
	DiedNote      string // text placed before the death date in the Died cell
}

// Results is what the search page lists for one query
type Results struct {
	Redirect   string   // article title the search jumps to, optional
	Suggestion string   // "did you mean" query, optional
	Titles     []string // ranked result article titles

	SuggestionArticle bool // the suggestion links straight to the article instead of a new search
}

// Server is a running fixture encyclopedia
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	articles map[string]Article // keyed by URL title
	aliases  map[string]string  // URL title -> article URL title
	searches map[string]Results
	hits     map[string]int
	robots   string
}

// New starts an empty fixture server closed at test cleanup
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		articles: make(map[string]Article),
		aliases:  make(map[string]string),
		searches: make(map[string]Results),
		hits:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", s.handleRobots)
	mux.HandleFunc("/wiki/", s.handleWiki)
	mux.HandleFunc("/w/index.php", s.handleSearch)

	s.Server = httptest.NewServer(s.count(mux))
	t.Cleanup(s.Close)
	return s
}

// NewScientists starts a server preloaded with the known scientists and a
// misspelled query that needs a second disambiguation round
func NewScientists(t testing.TB) *Server {
	t.Helper()

	s := New(t)
	s.AddArticle(Article{
		Title: "Albert Einstein",
		Born:  "1879-03-14",
		Died:  "1955-04-18",
		Intro: []string{
			"Albert Einstein was a German-born theoretical physicist.",
			"He is best known for developing the theory of relativity.",
		},
	})
	s.AddArticle(Article{
		Title: "Isaac Newton",
		Born:  "1643-01-04",
		Died:  "1727-03-31",
		Intro: []string{"Sir Isaac Newton was an English polymath."},
	})
	s.AddArticle(Article{
		Title: "Marie Curie",
		Born:  "1867-11-07",
		Died:  "1934-07-04",
		Intro: []string{
			"Marie Curie was a Polish and naturalised-French physicist and chemist.",
			"She was the first woman to win a Nobel Prize.",
		},
	})
	s.AddArticle(Article{
		Title: "Charles Darwin",
		Born:  "1809-02-12",
		Died:  "1882-04-19",
		Intro: []string{"Charles Robert Darwin was an English naturalist."},
	})
	s.AddArticle(Article{
		Title: "Einstein family",
		Born:  "1847-01-01",
		Intro: []string{"The Einstein family."},
	})

	s.AddSearch("Albert Einstien", Results{
		Suggestion: "Albert Einstein",
		Titles:     []string{"Einstein family"},
	})
	s.AddSearch("Albert Einstein", Results{
		Titles: []string{"Albert Einstein", "Einstein family"},
	})
	return s
}

// AddArticle registers an article at its canonical URL
func (s *Server) AddArticle(a Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[urlTitle(a.Title)] = a
}

// AddAlias serves the article titled target at the URL of alias
func (s *Server) AddAlias(alias, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[urlTitle(alias)] = urlTitle(target)
}

// AddSearch sets the results listed for query
func (s *Server) AddSearch(query string, r Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[query] = r
}

// SetRobots sets the robots.txt body; empty serves 404
func (s *Server) SetRobots(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots = body
}

// Hits returns how many requests were made for path
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// ArticleURL returns the absolute URL of title
func (s *Server) ArticleURL(title string) string {
	return s.URL + "/wiki/" + url.PathEscape(urlTitle(title))
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.robots
	s.mu.Unlock()

	if body == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, body)
}

func (s *Server) handleWiki(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimPrefix(r.URL.Path, "/wiki/")
	if title == "Special:Search" {
		s.handleSearch(w, r)
		return
	}

	s.mu.Lock()
	if target, ok := s.aliases[title]; ok {
		title = target
	}
	article, ok := s.articles[title]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writePage(w, strings.ReplaceAll(title, "_", " "),
			`<div class="mw-parser-output"><div class="noarticletext">`+
				`<p><b>Wikipedia does not have an article with this exact name.</b> Please search for it.</p>`+
				`</div></div>`)
		return
	}
	writePage(w, article.Title, renderArticle(article))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if query == "" {
		writePage(w, "Search", `<div class="mw-parser-output"><p>Search Wikipedia</p></div>`)
		return
	}

	s.mu.Lock()
	_, exact := s.articles[urlTitle(query)]
	results := s.searches[query]
	s.mu.Unlock()

	// Without fulltext=1 an exact title match jumps straight to the article
	if r.URL.Query().Get("fulltext") == "" {
		target := results.Redirect
		if exact {
			target = query
		}
		if target != "" {
			http.Redirect(w, r, "/wiki/"+url.PathEscape(urlTitle(target)), http.StatusFound)
			return
		}
	}

	var b strings.Builder
	b.WriteString(`<div class="searchresults">`)
	if results.Suggestion != "" {
		q := url.Values{"search": {results.Suggestion}, "title": {"Special:Search"}, "fulltext": {"1"}}
		href := "/w/index.php?" + q.Encode()
		if results.SuggestionArticle {
			href = "/wiki/" + url.PathEscape(urlTitle(results.Suggestion))
		}
		fmt.Fprintf(&b, `<div class="searchdidyoumean">Did you mean: <a id="mw-search-DYM-suggestion" href="%s"><em>%s</em></a></div>`,
			html.EscapeString(href), html.EscapeString(results.Suggestion))
	}
	if len(results.Titles) == 0 {
		b.WriteString(`<p class="mw-search-nonefound">There were no results matching the query.</p>`)
	} else {
		b.WriteString(`<div class="mw-search-results-container"><ul class="mw-search-results">`)
		for _, t := range results.Titles {
			fmt.Fprintf(&b, `<li class="mw-search-result"><table><tbody><tr><td></td><td>`+
				`<div class="mw-search-result-heading"><a href="/wiki/%s" title="%s">%s</a></div>`+
				`<div class="searchresult">%s ...</div></td></tr></tbody></table></li>`,
				url.PathEscape(urlTitle(t)), html.EscapeString(t), html.EscapeString(t), html.EscapeString(t))
		}
		b.WriteString(`</ul></div>`)
	}
	b.WriteString(`</div>`)

	writePage(w, "Search results", b.String())
}

func renderArticle(a Article) string {
	var b strings.Builder
	b.WriteString(`<div class="mw-content-ltr mw-parser-output" lang="en">`)
	b.WriteString(`<table class="infobox biography vcard"><tbody>`)
	fmt.Fprintf(&b, `<tr><th colspan="2" class="infobox-above">%s</th></tr>`, html.EscapeString(a.Title))
	if a.Born != "" {
		fmt.Fprintf(&b, `<tr><th scope="row" class="infobox-label">Born</th><td class="infobox-data">`+
			`%s<br /><span style="display:none">(<span class="bday">%s</span>)</span>%s<br />Somewhere</td></tr>`,
			html.EscapeString(a.Title), a.Born, a.Born)
	}
	died := 1
	if a.DuplicateDied {
		died = 2
	}
	for i := 0; a.Died != "" && i < died; i++ {
		fmt.Fprintf(&b, `<tr><th scope="row" class="infobox-label">Died</th><td class="infobox-data">`+
			`%s%s<span style="display:none">(<span class="dday deathdate">%s</span>)</span><br />Elsewhere</td></tr>`,
			html.EscapeString(a.DiedNote), a.Died, a.Died)
	}
	b.WriteString(`</tbody></table>`)

	b.WriteString("<p class=\"mw-empty-elt\">\n</p>")
	for _, p := range a.Intro {
		fmt.Fprintf(&b, "<p>\n%s\n</p>", html.EscapeString(p))
	}
	if !a.NoHeading {
		b.WriteString(`<div class="mw-heading mw-heading2"><h2 id="Biography">Biography</h2></div>`)
		b.WriteString(`<p>Body text that is not part of the introduction.</p>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func writePage(w http.ResponseWriter, heading, content string) {
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><title>%[1]s - Wikipedia</title></head>
<body>
<div class="vector-header-container"><header>
<form action="/w/index.php" id="searchform">
<input type="hidden" name="title" value="Special:Search">
<input type="search" name="search" id="searchInput" placeholder="Search Wikipedia">
<input type="submit" name="go" value="Go" id="searchButton">
</form>
</header></div>
<div class="mw-page-container"><main id="content">
<h1 id="firstHeading" class="firstHeading mw-first-heading"><span class="mw-page-title-main">%[1]s</span></h1>
<div id="bodyContent"><div id="mw-content-text">%[2]s</div></div>
</main></div>
</body></html>`, html.EscapeString(heading), content)
}

func urlTitle(title string) string {
	return strings.Join(strings.Fields(title), "_")
}

// Package source describes the rendering convention of the encyclopedia the
// lookup runs against: where articles live and how their parts are located.
package source

import (
	"net/url"
	"strings"
)

// Layout holds the base URL and the XPath locators of one encyclopedia rendering
type Layout struct {
	BaseURL string

	// MissingArticleText is shown on the page for a title that has no article
	MissingArticleText string

	Title               string // displayed article title
	SearchInput         string
	SearchSuggestion    string // "did you mean" link
	SearchResults       string // ranked result links, in order
	SearchEngineConsent string // redirect link on the search engine's "feeling lucky" page

	BornField string // infobox cell next to the "Born" header
	BornDate  string // relative to BornField
	DiedField string
	DiedDate  string // relative to DiedField
	Intro     string // lead paragraphs before the first section heading, in document order
}

// Wikipedia returns the layout of the English Wikipedia desktop skin, rooted at baseURL
func Wikipedia(baseURL string) Layout {
	return Layout{
		BaseURL:             strings.TrimRight(baseURL, "/"),
		MissingArticleText:  "Wikipedia does not have an article with this exact name.",
		Title:               `//h1[@id='firstHeading']`,
		SearchInput:         `//*[@id="searchInput"]`,
		SearchSuggestion:    `//*[@id="mw-search-DYM-suggestion"]`,
		SearchResults:       `//ul[contains(@class,'mw-search-results')]/li//div[contains(@class,'mw-search-result-heading')]/a`,
		SearchEngineConsent: `/html/body/div[2]/a[1]`,
		BornField:           `//table//tr[th[normalize-space(.)="Born"]]/td`,
		BornDate:            `.//span[contains(concat(' ',normalize-space(@class),' '),' bday ')]`,
		DiedField:           `//table//tr[th[normalize-space(.)="Died"]]/td`,
		DiedDate:            `.//span[contains(concat(' ',normalize-space(@class),' '),' dday ') or contains(concat(' ',normalize-space(@class),' '),' deathdate ')]`,
		Intro: `//div[contains(@class,'mw-parser-output')]/p` +
			`[not(preceding-sibling::h2 or preceding-sibling::div[contains(@class,'mw-heading')])]` +
			`[following-sibling::h2 or following-sibling::div[contains(@class,'mw-heading')]]`,
	}
}

// ArticleURL guesses the canonical article URL: name tokens joined by underscores
func (l Layout) ArticleURL(name string) string {
	title := strings.Join(strings.Fields(name), "_")
	return l.BaseURL + "/wiki/" + url.PathEscape(title)
}

// SearchPageURL is the page hosting the internal search form
func (l Layout) SearchPageURL() string {
	return l.BaseURL + "/wiki/Special:Search"
}

// IsSearchResultsURL reports whether u is still the search results page
func (l Layout) IsSearchResultsURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path, _ := url.PathUnescape(parsed.EscapedPath())
	return strings.HasSuffix(path, "/index.php") || strings.Contains(path, "Special:Search")
}

// SearchEngineURL builds the "feeling lucky" query restricting results to the encyclopedia host
func (l Layout) SearchEngineURL(engineURL, name string) string {
	host := l.BaseURL
	if u, err := url.Parse(l.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}

	q := url.Values{}
	q.Set("q", "site:"+host+" "+strings.Join(strings.Fields(name), " "))
	q.Set("btnI", "I'm Feeling Lucky")
	return engineURL + "?" + q.Encode()
}

package locate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
)

// Candidate is one choosable link on a search results page
type Candidate struct {
	Label  string
	Target driver.Element
}

// InvalidSelectionError rejects a menu answer; the prompt asks again
type InvalidSelectionError struct {
	Input string
	Max   int
	NaN   bool // input was not an integer
}

func (e *InvalidSelectionError) Error() string {
	if e.NaN {
		return fmt.Sprintf("%q is not an integer", e.Input)
	}
	return fmt.Sprintf("%s should be between 0 and %d", e.Input, e.Max)
}

// ValidateSelection parses a menu answer for a menu of n candidates.
// Integers in [0, n] are accepted; 0 means cancel.
func ValidateSelection(raw string, n int) (int, error) {
	raw = strings.TrimSpace(raw)

	choice, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &InvalidSelectionError{Input: raw, Max: n, NaN: true}
	}
	if choice < 0 || choice > n {
		return 0, &InvalidSelectionError{Input: raw, Max: n}
	}
	return choice, nil
}

// Disambiguator lets the user pick one of the candidates on a results page
type Disambiguator struct {
	Layout source.Layout
	UI     prompt.Interactor
	Settle Settle
}

// Enumerate lists the candidates on the current results page: the
// "did you mean" suggestion first when present, then the ranked results
func (d *Disambiguator) Enumerate(ctx context.Context, sess driver.Session) ([]Candidate, bool, error) {
	suggestions, err := sess.FindElements(ctx, d.Layout.SearchSuggestion)
	if err != nil {
		return nil, false, fmt.Errorf("find suggestion: %w", err)
	}
	results, err := sess.FindElements(ctx, d.Layout.SearchResults)
	if err != nil {
		return nil, false, fmt.Errorf("find results: %w", err)
	}

	candidates := make([]Candidate, 0, len(suggestions)+len(results))
	for _, el := range append(suggestions, results...) {
		label, err := el.Text(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("read candidate: %w", err)
		}
		candidates = append(candidates, Candidate{Label: normalizeName(label), Target: el})
	}
	return candidates, len(suggestions) > 0, nil
}

// Choose shows the menu and follows the chosen candidate. Choosing the
// suggestion opens another results page, which is offered once more;
// that second menu never recurses.
func (d *Disambiguator) Choose(ctx context.Context, sess driver.Session, name string, candidates []Candidate, hasSuggestion bool) (*model.ConfirmedDocument, error) {
	return d.choose(ctx, sess, name, candidates, hasSuggestion, true)
}

func (d *Disambiguator) choose(ctx context.Context, sess driver.Session, name string, candidates []Candidate, hasSuggestion, mayRecurse bool) (*model.ConfirmedDocument, error) {
	if len(candidates) == 0 {
		return nil, &model.NotFoundError{Name: name}
	}

	n := len(candidates)
	choice, err := d.UI.ChooseInt(Menu(candidates), func(raw string) (int, error) {
		return ValidateSelection(raw, n)
	})
	if err != nil {
		return nil, fmt.Errorf("choose candidate: %w", err)
	}
	if choice == 0 {
		return nil, &model.NotFoundError{Name: name}
	}

	previous := sess.CurrentURL()
	if err := candidates[choice-1].Target.Activate(ctx); err != nil {
		return nil, fmt.Errorf("open %q: %w", candidates[choice-1].Label, err)
	}
	d.Settle.await(ctx, sess, previous)

	if mayRecurse && hasSuggestion && choice == 1 && d.Layout.IsSearchResultsURL(sess.CurrentURL()) {
		next, nextHasSuggestion, err := d.Enumerate(ctx, sess)
		if err != nil {
			return nil, err
		}
		return d.choose(ctx, sess, name, next, nextHasSuggestion, false)
	}

	return &model.ConfirmedDocument{
		URL:      sess.CurrentURL(),
		Title:    readTitle(ctx, sess, d.Layout),
		Strategy: StrategyInteractiveSearch,
	}, nil
}

// Menu renders the numbered candidate list with the cancel option last
func Menu(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Which of the following do you choose?\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d) %s\n", i+1, c.Label)
	}
	b.WriteString("0) exit\n")
	return b.String()
}

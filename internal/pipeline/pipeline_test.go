package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/driver/htmldoc"
	"github.com/ppiankov/scientia/internal/extract"
	"github.com/ppiankov/scientia/internal/locate"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/narrator"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/wikitest"
)

// trackedSession counts Close calls on the wrapped session
type trackedSession struct {
	driver.Session
	closes *int
}

func (s *trackedSession) Close() error {
	*s.closes++
	return s.Session.Close()
}

type fixture struct {
	wiki     *wikitest.Server
	pipeline *Pipeline
	opens    int
	closes   int
	spoken   bytes.Buffer
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()

	f := &fixture{wiki: wikitest.NewScientists(t)}
	f.wiki.AddArticle(wikitest.Article{Title: "Two Deaths", Born: "1850-01-01", Died: "1900-01-01", DuplicateDied: true})

	layout := source.Wikipedia(f.wiki.URL)
	ui := prompt.NewConsole(strings.NewReader(input), &bytes.Buffer{}, false)
	engine := htmldoc.New(htmldoc.Options{UserAgent: "Scientia-Test/1.0", Timeout: 5 * time.Second})

	opener := driver.OpenerFunc(func(ctx context.Context) (driver.Session, error) {
		f.opens++
		sess, err := engine.Open(ctx)
		if err != nil {
			return nil, err
		}
		return &trackedSession{Session: sess, closes: &f.closes}, nil
	})

	locator := locate.New(locate.Config{
		Layout: layout,
		UI:     ui,
		Settle: locate.Settle{Timeout: 50 * time.Millisecond, Tick: 10 * time.Millisecond},
	})
	extractor := extract.NewExtractor(layout, nil).WithClock(func() time.Time {
		return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	})

	f.pipeline = NewPipeline(opener, locator, extractor, narrator.NewConsole(&f.spoken), nil)
	return f
}

func TestLookup_MarieCurieEndToEnd(t *testing.T) {
	f := newFixture(t, "")

	rec, err := f.pipeline.Lookup(context.Background(), "Marie Curie")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}

	if rec.BirthDate.Format(model.DateLayout) != "1867-11-07" {
		t.Errorf("birth = %v", rec.BirthDate)
	}
	if rec.DeathDate == nil || rec.DeathDate.Format(model.DateLayout) != "1934-07-04" {
		t.Errorf("death = %v", rec.DeathDate)
	}
	if rec.Age != 66 {
		t.Errorf("age = %d, want 66", rec.Age)
	}
	if f.wiki.Hits("/w/index.php") != 0 {
		t.Error("direct guess should not need the search")
	}
	if f.opens != 1 || f.closes != 1 {
		t.Errorf("opens=%d closes=%d, want 1/1", f.opens, f.closes)
	}
}

func TestLookup_ClosesSessionOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		lookup  string
		input   string
		wantErr error
	}{
		{"success", "Isaac Newton", "", nil},
		{"not found", "Zzyzx Qwerty", "", model.ErrNotFound},
		{"cancelled", "Albert Einstien", "0\n", model.ErrNotFound},
		{"malformed", "Two Deaths", "", model.ErrMalformedDocument},
		{"input closed", "Albert Einstien", "", prompt.ErrNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.input)

			_, err := f.pipeline.Lookup(context.Background(), tt.lookup)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if f.closes != 1 {
				t.Errorf("session closed %d times, want 1", f.closes)
			}
		})
	}
}

func TestLookup_OpenFailure(t *testing.T) {
	boom := errors.New("no browser")
	p := NewPipeline(driver.OpenerFunc(func(context.Context) (driver.Session, error) {
		return nil, boom
	}), nil, nil, nil, nil)

	if _, err := p.Lookup(context.Background(), "Marie Curie"); !errors.Is(err, boom) {
		t.Errorf("expected open error, got %v", err)
	}
}

func TestRun_NarratesAroundLookup(t *testing.T) {
	f := newFixture(t, "")

	rec, err := f.pipeline.Run(context.Background(), func() (string, error) { return "Charles Darwin", nil })
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rec.Age != 73 {
		t.Errorf("age = %d, want 73", rec.Age)
	}

	out := f.spoken.String()
	hello := strings.Index(out, "Hello")
	wait := strings.Index(out, "Please wait")
	bye := strings.Index(out, "Goodbye")
	if hello < 0 || wait < hello || bye < wait {
		t.Errorf("narration out of order:\n%s", out)
	}
}

func TestRun_GoodbyeAfterFailure(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.pipeline.Run(context.Background(), func() (string, error) { return "", prompt.ErrNoInput })
	if !errors.Is(err, prompt.ErrNoInput) {
		t.Fatalf("expected name error, got %v", err)
	}
	if !strings.Contains(f.spoken.String(), "Goodbye") {
		t.Error("goodbye must be said on failure")
	}
	if f.opens != 0 {
		t.Error("no session should open without a name")
	}
}

func TestRenderer(t *testing.T) {
	death := time.Date(1934, 7, 4, 0, 0, 0, 0, time.UTC)
	rec := &model.BiographicalRecord{
		Name:      "Marie Curie",
		BirthDate: time.Date(1867, 11, 7, 0, 0, 0, 0, time.UTC),
		DeathDate: &death,
		Age:       66,
		Intro:     []string{"First.", "Second."},
	}

	var out, screen bytes.Buffer
	ui := prompt.NewConsole(strings.NewReader("\n"), &screen, false)
	r := NewRenderer(&out, ui)

	if err := r.Present(rec); err != nil {
		t.Fatalf("Present() error: %v", err)
	}
	want := "\nThe scientist was born on 07 November 1867\n" +
		"The scientist died on     04 July 1934\n" +
		"The age of the scientist is 66\n"
	if out.String() != want {
		t.Errorf("summary = %q, want %q", out.String(), want)
	}
	if !strings.Contains(screen.String(), "To read article press Enter") ||
		!strings.Contains(screen.String(), "Article:\n\nFirst.\n\nSecond.\n") {
		t.Errorf("pager output = %q", screen.String())
	}

	out.Reset()
	if err := r.RenderJSON(rec); err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["age"] != float64(66) || decoded["name"] != "Marie Curie" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestRenderer_Alive(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, nil).RenderSummary(&model.BiographicalRecord{
		BirthDate: time.Date(1879, 3, 14, 0, 0, 0, 0, time.UTC),
		Age:       76,
	})
	if strings.Contains(out.String(), "died") {
		t.Errorf("living person rendered with a death date: %q", out.String())
	}
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/prompt"
)

// DisplayLayout formats dates for people
const DisplayLayout = "02 January 2006"

// Renderer presents a record to the user
type Renderer struct {
	out io.Writer
	ui  prompt.Interactor // nil skips the article pager
}

// NewRenderer creates a renderer writing to out
func NewRenderer(out io.Writer, ui prompt.Interactor) *Renderer {
	return &Renderer{out: out, ui: ui}
}

// RenderSummary prints dates and age
func (r *Renderer) RenderSummary(rec *model.BiographicalRecord) {
	_, _ = fmt.Fprintf(r.out, "\nThe scientist was born on %s\n", rec.BirthDate.Format(DisplayLayout))
	if rec.DeathDate != nil {
		_, _ = fmt.Fprintf(r.out, "The scientist died on     %s\n", rec.DeathDate.Format(DisplayLayout))
	}
	_, _ = fmt.Fprintf(r.out, "The age of the scientist is %d\n", rec.Age)
}

// RenderJSON writes the record as indented JSON
func (r *Renderer) RenderJSON(rec *model.BiographicalRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(data)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Present prints the summary, then pages the intro once the user is ready
func (r *Renderer) Present(rec *model.BiographicalRecord) error {
	r.RenderSummary(rec)
	if r.ui == nil {
		return nil
	}

	if _, err := r.ui.Ask("\nTo read article press Enter", ""); err != nil {
		return fmt.Errorf("wait for reader: %w", err)
	}
	if err := r.ui.Page(rec.Intro); err != nil {
		return fmt.Errorf("show article: %w", err)
	}
	return nil
}

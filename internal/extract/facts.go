// Package extract reads biographical facts from a confirmed article
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/source"
)

// Extractor reads the infobox dates and the lead paragraphs
type Extractor struct {
	layout source.Layout
	now    func() time.Time
	log    *zap.Logger
}

// NewExtractor creates an Extractor using the wall clock for living people
func NewExtractor(layout source.Layout, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{layout: layout, now: time.Now, log: log}
}

// WithClock replaces the clock used as the end date for living people
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract builds the record for doc. Structural defects (no Born field,
// several Died fields, unreadable dates, implausible age) fail with
// *model.MalformedDocumentError rather than being defaulted.
func (e *Extractor) Extract(ctx context.Context, sess driver.Session, doc *model.ConfirmedDocument, name string) (*model.BiographicalRecord, error) {
	if sess.CurrentURL() != doc.URL {
		if err := sess.Navigate(ctx, doc.URL); err != nil {
			return nil, fmt.Errorf("open confirmed document: %w", err)
		}
	}

	birth, err := e.birthDate(ctx, sess)
	if err != nil {
		return nil, err
	}

	death, err := e.deathDate(ctx, sess)
	if err != nil {
		return nil, err
	}

	end := Today(e.now())
	if death != nil {
		end = *death
	}
	age, err := Age(birth, end)
	if err != nil {
		return nil, err
	}

	intro, err := e.intro(ctx, sess)
	if err != nil {
		return nil, err
	}

	e.log.Debug("extracted facts",
		zap.String("url", doc.URL),
		zap.Time("birth", birth),
		zap.Bool("alive", death == nil),
		zap.Int("age", age),
		zap.Int("paragraphs", len(intro)),
	)

	return &model.BiographicalRecord{
		Name:      name,
		Title:     doc.Title,
		SourceURL: doc.URL,
		BirthDate: birth,
		DeathDate: death,
		Age:       age,
		Intro:     intro,
	}, nil
}

func (e *Extractor) birthDate(ctx context.Context, sess driver.Session) (time.Time, error) {
	fields, err := sess.FindElements(ctx, e.layout.BornField)
	if err != nil {
		return time.Time{}, fmt.Errorf("find Born field: %w", err)
	}
	switch len(fields) {
	case 0:
		return time.Time{}, model.Malformed("no Born field", nil)
	case 1:
	default:
		return time.Time{}, model.Malformed(fmt.Sprintf("%d Born fields", len(fields)), nil)
	}

	// Prefer the machine-readable span; fall back to any date token in the cell
	field := fields[0]
	if bday, err := field.Find(ctx, e.layout.BornDate); err == nil && bday != nil {
		field = bday
	}

	text, err := field.Text(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read Born field: %w", err)
	}
	date, err := ParseDate(text)
	if err != nil {
		return time.Time{}, model.Malformed("unreadable birth date", err)
	}
	return date, nil
}

func (e *Extractor) deathDate(ctx context.Context, sess driver.Session) (*time.Time, error) {
	fields, err := sess.FindElements(ctx, e.layout.DiedField)
	if err != nil {
		return nil, fmt.Errorf("find Died field: %w", err)
	}
	switch len(fields) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, model.Malformed(fmt.Sprintf("%d Died fields", len(fields)), nil)
	}

	field := fields[0]
	if dday, err := field.Find(ctx, e.layout.DiedDate); err == nil && dday != nil {
		field = dday
	}

	text, err := field.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read Died field: %w", err)
	}
	date, err := ParseDate(text)
	if err != nil {
		return nil, model.Malformed("unreadable death date", err)
	}
	return &date, nil
}

// intro returns the trimmed lead paragraphs; blank ones are dropped
func (e *Extractor) intro(ctx context.Context, sess driver.Session) ([]string, error) {
	paragraphs, err := sess.FindElements(ctx, e.layout.Intro)
	if err != nil {
		return nil, fmt.Errorf("find intro: %w", err)
	}

	intro := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		text, err := p.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read intro: %w", err)
		}
		if text = strings.TrimSpace(text); text != "" {
			intro = append(intro, text)
		}
	}
	return intro, nil
}

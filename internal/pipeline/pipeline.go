package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/extract"
	"github.com/ppiankov/scientia/internal/locate"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/narrator"
)

// Pipeline orchestrates one lookup: open a session, locate the article,
// extract the facts, close the session
type Pipeline struct {
	opener    driver.Opener
	locator   *locate.Locator
	extractor *extract.Extractor
	narrator  narrator.Narrator
	log       *zap.Logger
}

// NewPipeline creates a pipeline. A nil narrator stays silent.
func NewPipeline(opener driver.Opener, locator *locate.Locator, extractor *extract.Extractor, n narrator.Narrator, log *zap.Logger) *Pipeline {
	if n == nil {
		n = narrator.Silent{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opener:    opener,
		locator:   locator,
		extractor: extractor,
		narrator:  n,
		log:       log,
	}
}

// NameSource supplies the name to look up, prompting if it has to
type NameSource func() (string, error)

// Run greets, resolves the name, looks it up and says goodbye on every path
func (p *Pipeline) Run(ctx context.Context, name NameSource) (*model.BiographicalRecord, error) {
	p.narrator.Hello()
	defer p.narrator.Goodbye()

	resolved, err := name()
	if err != nil {
		return nil, fmt.Errorf("resolve name: %w", err)
	}

	p.narrator.Wait()
	return p.Lookup(ctx, resolved)
}

// Lookup returns the record for name. The session it opens is closed on
// every exit path, including not-found and malformed-document failures.
func (p *Pipeline) Lookup(ctx context.Context, name string) (*model.BiographicalRecord, error) {
	sess, err := p.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.log.Warn("session close failed", zap.Error(err))
		}
	}()

	log := p.log.With(zap.String("name", name))
	log.Debug("locating article")

	doc, err := p.locator.Locate(ctx, name, sess)
	if err != nil {
		log.Debug("lookup failed", zap.Error(err))
		return nil, err
	}
	log.Debug("article confirmed", zap.String("url", doc.URL), zap.String("strategy", doc.Strategy))

	rec, err := p.extractor.Extract(ctx, sess, doc, name)
	if err != nil {
		log.Debug("extraction failed", zap.Error(err))
		return nil, err
	}
	return rec, nil
}

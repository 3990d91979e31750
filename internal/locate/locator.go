// Package locate finds the encyclopedia article for a person's name.
//
// A Locator runs an ordered chain of strategies against one document session.
// The first strategy to confirm a document wins; a strategy that fails hands
// over to the next one, and a strategy that aborts ends the lookup.
package locate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/model"
	"github.com/ppiankov/scientia/internal/prompt"
	"github.com/ppiankov/scientia/internal/source"
	"github.com/ppiankov/scientia/internal/util"
)

// Settle bounds the soft wait for the URL to change after a click or submit
type Settle struct {
	Timeout time.Duration
	Tick    time.Duration
}

// DefaultSettle waits up to a minute, polling every 100ms
var DefaultSettle = Settle{Timeout: 60 * time.Second, Tick: 100 * time.Millisecond}

func (s Settle) await(ctx context.Context, sess driver.Session, previous string) bool {
	return driver.AwaitURLChange(ctx, sess, previous, s.Timeout, s.Tick)
}

// Config assembles the default strategy chain
type Config struct {
	Layout source.Layout
	UI     prompt.Interactor
	Settle Settle

	// SearchEngineFallback inserts the search engine strategy between the
	// direct guess and the interactive search
	SearchEngineFallback bool
	SearchEngineURL      string
	Robots               *util.RobotsChecker

	Logger *zap.Logger
}

// Locator runs strategies in order
type Locator struct {
	strategies []Strategy
	log        *zap.Logger
}

// New builds the chain: direct guess, optionally the search engine, then interactive search
func New(cfg Config) *Locator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Settle.Timeout <= 0 {
		cfg.Settle = DefaultSettle
	}

	check := &pageCheck{layout: cfg.Layout, ui: cfg.UI}
	strategies := []Strategy{
		&DirectGuess{Layout: cfg.Layout, check: check},
	}
	if cfg.SearchEngineFallback {
		strategies = append(strategies, &SearchEngine{
			Layout:    cfg.Layout,
			EngineURL: cfg.SearchEngineURL,
			Robots:    cfg.Robots,
			Settle:    cfg.Settle,
			check:     check,
		})
	}
	strategies = append(strategies, &InteractiveSearch{
		Layout: cfg.Layout,
		Settle: cfg.Settle,
		Disambiguator: &Disambiguator{
			Layout: cfg.Layout,
			UI:     cfg.UI,
			Settle: cfg.Settle,
		},
	})

	return NewLocator(cfg.Logger, strategies...)
}

// NewLocator creates a Locator over an explicit chain
func NewLocator(log *zap.Logger, strategies ...Strategy) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{strategies: strategies, log: log}
}

// Strategies returns the chain in priority order
func (l *Locator) Strategies() []Strategy {
	return l.strategies
}

// Locate returns the confirmed article for name, leaving sess positioned on it.
// It fails with *model.NotFoundError when no strategy succeeds or the user cancels.
func (l *Locator) Locate(ctx context.Context, name string, sess driver.Session) (*model.ConfirmedDocument, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, &model.NotFoundError{Name: name}
	}

	for _, strategy := range l.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := l.log.With(zap.String("strategy", strategy.Name()), zap.String("name", name))
		out := strategy.Attempt(ctx, name, sess)

		switch out.Kind {
		case Success:
			log.Debug("document confirmed", zap.String("url", out.Document.URL), zap.String("title", out.Document.Title))
			return out.Document, nil
		case Retry:
			log.Debug("strategy failed, trying next", zap.String("reason", out.Reason), zap.Error(out.Err))
		case Abort:
			log.Debug("lookup aborted", zap.String("reason", out.Reason), zap.Error(out.Err))
			if out.Err != nil {
				return nil, out.Err
			}
			return nil, &model.NotFoundError{Name: name}
		}
	}

	return nil, &model.NotFoundError{Name: name}
}

// normalizeName collapses runs of whitespace
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// interrupted reports errors that must end the whole lookup rather than one strategy
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, prompt.ErrNoInput)
}

package locate

import (
	"context"

	"github.com/ppiankov/scientia/internal/driver"
	"github.com/ppiankov/scientia/internal/model"
)

// Kind tags a strategy outcome
type Kind int

const (
	// Success carries the confirmed document
	Success Kind = iota
	// Retry means this strategy failed and the next one should run
	Retry
	// Abort stops the chain: the search space for the name is exhausted
	Abort
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Outcome is the result of one strategy attempt
type Outcome struct {
	Kind     Kind
	Document *model.ConfirmedDocument // set for Success
	Reason   string                   // why the strategy gave up
	Err      error                    // cause; for Abort it is surfaced to the caller
}

// Strategy is one self-contained way of finding the article for a name
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, name string, sess driver.Session) Outcome
}

func succeeded(doc *model.ConfirmedDocument) Outcome {
	return Outcome{Kind: Success, Document: doc}
}

func retry(reason string, err error) Outcome {
	return Outcome{Kind: Retry, Reason: reason, Err: err}
}

func abort(reason string, err error) Outcome {
	return Outcome{Kind: Abort, Reason: reason, Err: err}
}

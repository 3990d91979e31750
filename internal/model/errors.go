package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any *NotFoundError
	ErrNotFound = errors.New("article not found")

	// ErrMalformedDocument matches any *MalformedDocumentError
	ErrMalformedDocument = errors.New("malformed document")
)

// NotFoundError is returned when every lookup strategy is exhausted
// or the user cancels the disambiguation menu
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find %q", e.Name)
}

// Is makes errors.Is(err, ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MalformedDocumentError reports a confirmed article whose structure
// does not yield the mandatory facts
type MalformedDocumentError struct {
	Reason string
	Err    error // Underlying parse error, if any
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return "malformed document: " + e.Reason
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedDocument) hold
func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// Malformed builds a *MalformedDocumentError
func Malformed(reason string, err error) error {
	return &MalformedDocumentError{Reason: reason, Err: err}
}

// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by repositories when the requested identity does not exist.
var ErrRecordNotFound = errors.New("record not found")

// Kind classifies an application error.
type Kind string

const (
	// KindValidation marks input that was rejected before any persistence happened.
	KindValidation Kind = "validation"
	// KindNotFound marks a referenced identity that does not exist.
	KindNotFound Kind = "not_found"
	// KindPersistence marks a failed call against the store.
	KindPersistence Kind = "persistence"
)

// Error carries the kind, the failing operation and an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports rejected input.
func Validation(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// ValidationFields reports rejected input with per-field reasons.
func ValidationFields(op string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Op: op, Message: "invalid fields", Fields: fields}
}

// NotFound reports a missing entity.
func NotFound(op, entity, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %q not found", entity, id), Err: ErrRecordNotFound}
}

// Persistence wraps a store failure.
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// FromStore maps repository errors: ErrRecordNotFound becomes NotFound, anything else Persistence.
func FromStore(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) {
		return NotFound(op, entity, id)
	}
	return Persistence(op, err)
}

// KindOf extracts the kind of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// FieldsOf returns per-field validation reasons, if any.
func FieldsOf(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

package core

import "github.com/pkg/errors"

// ErrNotFound is the cause of every domain "not found" error.
var ErrNotFound = errors.New("not found")

// NewNotFoundError returns the "not found" error of a resource, eg. "chantier not found".
func NewNotFoundError(resource string) error {
	return &notFound{resource: resource}
}

type notFound struct {
	resource string
}

func (e *notFound) Error() string { return e.resource + " not found" }
func (e *notFound) Cause() error  { return ErrNotFound }
func (e *notFound) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err was caused by a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Cause(err) == ErrNotFound
}

// NotFoundMessage returns the message of the resource error wrapped in err, eg. "chantier not found".
func NotFoundMessage(err error) string {
	var nf *notFound
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return ErrNotFound.Error()
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldValidationError is a shorthand for a ValidationError on a single field.
func NewFieldValidationError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

package errors

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	// Storage errors
	ErrNoteNotFound  = errors.New("note not found")
	ErrDatabaseQuery = errors.New("database query failed")

	// Validation errors
	ErrInvalidNote      = errors.New("invalid note")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidPerPage   = errors.New("invalid page size")
	ErrInvalidTag       = errors.New("invalid note tag")
	ErrInvalidBoolean   = errors.New("invalid boolean value (use true/false)")
	ErrInvalidNumber    = errors.New("invalid numeric value")
	ErrUnknownConfigKey = errors.New("unknown configuration key")

	// Remote API errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnexpectedCode = errors.New("unexpected response status")
	ErrClosed         = errors.New("controller closed")
)

// FetchError reports that a note list could not be retrieved. It is not
// classified further; callers show a generic message.
type FetchError struct {
	Page    int
	PerPage int
	Search  string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch notes (page %d, per page %d, search %q): %v", e.Page, e.PerPage, e.Search, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CreateError reports that a note submission failed.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create note: %v", e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsCreateError reports whether err wraps a CreateError.
func IsCreateError(err error) bool {
	var ce *CreateError
	return errors.As(err, &ce)
}

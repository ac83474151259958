package isbndb

import (
	"errors"
	"fmt"
)

// Sentinel errors for ISBNdb API operations.
var (
	ErrNotFound     = errors.New("isbndb: not found")
	ErrUnauthorized = errors.New("isbndb: invalid api key")
	ErrRateLimited  = errors.New("isbndb: rate limited by server")
	ErrServer       = errors.New("isbndb: server error")
	ErrInvalidISBN  = errors.New("isbndb: invalid ISBN format")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op   string // Operation: "getBook", "search"
	ISBN string // If applicable
	Err  error
}

func (e *Error) Error() string {
	if e.ISBN != "" {
		return fmt.Sprintf("isbndb %s [%s]: %v", e.Op, e.ISBN, e.Err)
	}
	return fmt.Sprintf("isbndb %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, isbn string, err error) error {
	return &Error{
		Op:   op,
		ISBN: isbn,
		Err:  err,
	}
}

package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the operation would break a business rule
// (active assignment, completed-entity mutation, blocked deletion, duplicate name).
var ErrConflict = errors.New("conflict")

// ErrInvalidInput indicates a value outside the accepted range, or an unknown breed.
var ErrInvalidInput = errors.New("invalid input")

// ErrBreedUnavailable indicates the breed vocabulary could not be consulted.
var ErrBreedUnavailable = errors.New("breed lookup unavailable")

// Error carries a client-facing message for one of the sentinel kinds above.
// errors.Is(err, ErrConflict) etc. matches through Unwrap.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func InvalidInputf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

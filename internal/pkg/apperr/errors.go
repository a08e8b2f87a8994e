// Package apperr defines the error taxonomy shared by the ledger services
// and the transports that report failures to users.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)

// ErrAlreadyResolved is reported for transitions attempted on a challenge
// that already left the pending state (double accept, accept after decline).
var ErrAlreadyResolved = &Error{Kind: ErrInvalidState, Msg: "challenge already resolved"}

// Error carries a user-facing message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a fixed message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Message returns the user-facing message of err. Errors outside the
// taxonomy are reported generically so storage details do not leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrInsufficientFunds, ErrInvalidArgument, ErrConflict, ErrForbidden} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}

// IsDomain reports whether err belongs to the taxonomy, as opposed to an
// operational failure such as a lost database connection.
func IsDomain(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrInsufficientFunds, ErrInvalidArgument, ErrConflict, ErrForbidden} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by every service operation.  Callers match them
// with errors.Is; the wrapped message carries the detail.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotYetEligible  = errors.New("not yet eligible")
	ErrExpired         = errors.New("expired")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
)

// ErrorKind is the stable, client-visible name of an error kind.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "InvalidInput"
	KindSlotUnavailable ErrorKind = "SlotUnavailable"
	KindInvalidState    ErrorKind = "InvalidState"
	KindNotYetEligible  ErrorKind = "NotYetEligible"
	KindExpired         ErrorKind = "Expired"
	KindNotFound        ErrorKind = "NotFound"
	KindForbidden       ErrorKind = "Forbidden"
	KindInternal        ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrSlotUnavailable, KindSlotUnavailable},
	{ErrInvalidState, KindInvalidState},
	{ErrNotYetEligible, KindNotYetEligible},
	{ErrExpired, KindExpired},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
}

// KindOf classifies err.  Unclassified errors are Internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func fail(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition    = errors.New("session: invalid transition")
	ErrClosed               = errors.New("session: controller closed")
	ErrConnectorUnavailable = errors.New("session: connector unavailable")
	ErrStartFailed          = errors.New("session: start not confirmed")
	ErrStopFailed           = errors.New("session: stop not confirmed")
	ErrInsufficientBalance  = errors.New("session: insufficient balance")
)

// Kind names the reason a controller entered the error state.
type Kind string

const (
	KindConnectorUnavailable Kind = "ConnectorUnavailable"
	KindStartFailed          Kind = "StartFailed"
	KindStopFailed           Kind = "StopFailed"
	KindInsufficientBalance  Kind = "InsufficientBalance"
)

func (k Kind) sentinel() error {
	switch k {
	case KindConnectorUnavailable:
		return ErrConnectorUnavailable
	case KindStartFailed:
		return ErrStartFailed
	case KindStopFailed:
		return ErrStopFailed
	case KindInsufficientBalance:
		return ErrInsufficientBalance
	}
	return nil
}

// Error is the terminal failure of a controller. It matches both the kind's
// sentinel and the underlying cause with errors.Is.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func failure(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

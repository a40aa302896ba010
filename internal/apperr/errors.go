// Package apperr defines the failure taxonomy shared by the auth, audit and
// mutation layers. Callers classify failures with errors.Is against the
// sentinels below; the wrapped cause stays reachable through Unwrap.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindBadRequest   Kind = "bad_request"
	KindConflict     Kind = "conflict"
	KindPersistence  Kind = "persistence_failure"
	KindAudit        Kind = "audit_failure"
	KindCrypto       Kind = "crypto_failure"
)

// Error carries a kind, the failing operation and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrPersistence  = &Error{Kind: KindPersistence}
	ErrAudit        = &Error{Kind: KindAudit}
	ErrCrypto       = &Error{Kind: KindCrypto}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches kind and operation to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or the
// empty kind when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Persistence classifies err as a storage failure unless it already carries a kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

func NotFound(op, msg string) error     { return New(KindNotFound, op, msg) }
func BadRequest(op, msg string) error   { return New(KindBadRequest, op, msg) }
func Unauthorized(op, msg string) error { return New(KindUnauthorized, op, msg) }
func Conflict(op, msg string) error     { return New(KindConflict, op, msg) }

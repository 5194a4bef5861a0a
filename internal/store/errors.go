package store

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can choose a reply without
// inspecting backend-specific errors.
type Kind string

const (
	// KindNotFound means the table (sheet) could not be resolved.
	KindNotFound Kind = "not_found"

	// KindUnauthorized means credentials were rejected or lack permission.
	KindUnauthorized Kind = "unauthorized"

	// KindTimeout means the round trip did not finish in time.
	KindTimeout Kind = "timeout"

	// KindUnavailable covers network failures, quota and 5xx responses.
	KindUnavailable Kind = "unavailable"

	// KindInternal is anything else.
	KindInternal Kind = "internal"
)

// Retryable reports whether the same call may succeed later.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindUnavailable
}

// Error is returned by every TaskStore implementation.
type Error struct {
	Op   string // append, query, delete
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrTableNotFound is wrapped by KindNotFound errors.
var ErrTableNotFound = errors.New("table not found")

// NewError builds an Error, classifying context errors as timeouts.
func NewError(op string, kind Kind, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or KindInternal if err is not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/Query-farm/catbus/rson"
)

// Sentinels for use with errors.Is. Matching is by error type only, so an
// error received from a remote server matches the same sentinel as one
// raised locally.
var (
	ErrNotFound              = rson.ErrNotFound
	ErrMethodNotAllowed      = rson.ErrMethodNotAllowed
	ErrForbidden             = rson.ErrForbidden
	ErrDuplicateRegistration = rson.ErrDuplicateRegistration
	ErrInvalidArgument       = rson.ErrInvalidArgument
	ErrNotImplemented        = rson.ErrNotImplemented
	ErrUnknownType           = rson.ErrUnknownType
	ErrInvalidTag            = rson.ErrInvalidTag
	ErrServerError           = rson.ErrServerError

	// ErrUnknownAttribute is returned by [RemoteObject.Attr] on a miss.
	ErrUnknownAttribute = errors.New("catbus: unknown attribute")
)

func notFound(format string, args ...any) error {
	return rson.Errorf(rson.TypeNotFound, format, args...)
}

func methodNotAllowed(format string, args ...any) error {
	return rson.Errorf(rson.TypeMethodNotAllowed, format, args...)
}

func forbidden(format string, args ...any) error {
	return rson.Errorf(rson.TypeForbidden, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return rson.Errorf(rson.TypeInvalidArgument, format, args...)
}

func duplicate(format string, args ...any) error {
	return rson.Errorf(rson.TypeDuplicateRegistration, format, args...)
}

// StatusFor maps an error to the HTTP status the server answers with.
// Errors that are not *rson.Error are unexpected failures.
func StatusFor(err error) int {
	var e *rson.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case rson.TypeNotFound:
		return http.StatusNotFound
	case rson.TypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case rson.TypeForbidden:
		return http.StatusForbidden
	case rson.TypeInvalidArgument:
		return http.StatusBadRequest
	case rson.TypeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// panicError wraps a value recovered from a panicking handler.
type panicError struct {
	value any
	trace string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// captureTrace returns the calling goroutine's stack.
func captureTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

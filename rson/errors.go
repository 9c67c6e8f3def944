// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"fmt"
)

// Error types carried in the Type field of an [Error].
const (
	TypeNotFound              = "NotFound"
	TypeMethodNotAllowed      = "MethodNotAllowed"
	TypeForbidden             = "Forbidden"
	TypeDuplicateRegistration = "DuplicateRegistration"
	TypeInvalidArgument       = "InvalidArgument"
	TypeNotImplemented        = "NotImplemented"
	TypeUnknownType           = "UnknownType"
	TypeInvalidTag            = "InvalidTag"
	TypeServerError           = "ServerError"
)

// Sentinels for use with errors.Is. Matching is by Type only.
var (
	ErrNotFound              = &Error{Type: TypeNotFound}
	ErrMethodNotAllowed      = &Error{Type: TypeMethodNotAllowed}
	ErrForbidden             = &Error{Type: TypeForbidden}
	ErrDuplicateRegistration = &Error{Type: TypeDuplicateRegistration}
	ErrInvalidArgument       = &Error{Type: TypeInvalidArgument}
	ErrNotImplemented        = &Error{Type: TypeNotImplemented}
	ErrUnknownType           = &Error{Type: TypeUnknownType}
	ErrInvalidTag            = &Error{Type: TypeInvalidTag}
	ErrServerError           = &Error{Type: TypeServerError}
)

// Error is both a Go error and the wire descriptor sent in error response
// bodies. Status is filled in by the client from the HTTP response and is
// not part of the payload.
type Error struct {
	Type      string
	Message   string
	Traceback string
	Status    int
}

// Errorf returns an *Error of the given type with a formatted message.
func Errorf(typ, format string, args ...any) *Error {
	return &Error{Type: typ, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is supports errors.Is. A target without a Type matches any *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == "" || t.Type == e.Type
}

func (e *Error) RsonTag() string { return "Error" }

func (e *Error) RsonPayload() (any, error) {
	p := map[string]any{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Traceback != "" {
		p["traceback"] = e.Traceback
	}
	return p, nil
}

func decodeError(payload any) (any, error) {
	f, err := fields("Error", payload)
	if err != nil {
		return nil, err
	}
	e := &Error{}
	if e.Type, err = f.str("type"); err != nil {
		return nil, err
	}
	if e.Message, err = f.optStr("message"); err != nil {
		return nil, err
	}
	if e.Traceback, err = f.optStr("traceback"); err != nil {
		return nil, err
	}
	return e, nil
}

// SyntaxError reports malformed wire text.
type SyntaxError struct {
	Message string
	Offset  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("rson: %s at offset %d", e.Message, e.Offset)
}

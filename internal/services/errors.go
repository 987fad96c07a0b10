package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure. Handlers map it to an HTTP status.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindMalformed   Kind = "malformed_request"
	KindAuthFailure Kind = "auth_failure"
	KindInternal    Kind = "internal_error"
)

// MessageKey holds errors that do not belong to a single field.
const MessageKey = "message"

// FieldErrors maps a field name to its messages in rule order.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// Error is a domain failure carried from services to handlers.
type Error struct {
	Kind   Kind
	Fields FieldErrors
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, messages := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(messages, "; ")))
	}
	if len(parts) == 0 {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, strings.Join(parts, ", "))
}

func ValidationFailed(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Fields: FieldErrors{field: {message}}}
}

func NotFound(message string) *Error {
	return newMessageError(KindNotFound, message)
}

func Forbidden(message string) *Error {
	return newMessageError(KindForbidden, message)
}

func Malformed(message string) *Error {
	return newMessageError(KindMalformed, message)
}

func AuthFailure(message string) *Error {
	return newMessageError(KindAuthFailure, message)
}

func Internal(message string) *Error {
	return newMessageError(KindInternal, message)
}

func newMessageError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Fields: FieldErrors{MessageKey: {message}}}
}

// KindOf returns the Kind of err, or KindInternal for anything that is not an *Error.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the domain error taxonomy. Every service failure that a
// caller can act on carries one of these kinds; transport layers map them
// to user-facing responses.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindConflict     ErrorKind = "conflict"
	KindExpired      ErrorKind = "expired"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation"
)

// DomainError is a service failure with a machine-checkable kind and a
// message safe to show to the caller.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NotFoundf(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidStatef(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ErrClaimLink is returned for every claim-workflow guard failure: missing
// token, expired token, inactive scenario or provider, and ownership
// mismatches. The message is deliberately generic because this path is
// unauthenticated; internals must not leak through it.
var ErrClaimLink = &DomainError{
	Kind:    KindExpired,
	Message: "This link is invalid or has expired. Please contact your coordinator for a new one.",
}

// KindOf extracts the domain error kind, or "" for plain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given domain error kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

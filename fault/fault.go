// Copyright (c) 2025 BVK Chaitanya

// Package fault defines the error kinds shared by all service packages. The
// HTTP layer translates kinds to status codes in exactly one place, so the
// services never import net/http.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Validation
	Conflict
	Unauthorized
	Forbidden
	RateLimited
	ProviderTimeout
	ProviderUnavailable
	ProviderAuth
	ProviderValidation
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case RateLimited:
		return "rate-limited"
	case ProviderTimeout:
		return "provider-timeout"
	case ProviderUnavailable:
		return "provider-unavailable"
	case ProviderAuth:
		return "provider-auth"
	case ProviderValidation:
		return "provider-validation"
	}
	return "internal"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err (may be nil) with a kind and a client-visible message.
func New(kind Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFoundf(format string, args ...interface{}) error {
	return New(NotFound, nil, format, args...)
}

func Validationf(format string, args ...interface{}) error {
	return New(Validation, nil, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return New(Conflict, nil, format, args...)
}

func Unauthorizedf(format string, args ...interface{}) error {
	return New(Unauthorized, nil, format, args...)
}

func Forbiddenf(format string, args ...interface{}) error {
	return New(Forbidden, nil, format, args...)
}

func RateLimitedf(format string, args ...interface{}) error {
	return New(RateLimited, nil, format, args...)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// Internal when err carries no kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// MessageOf returns the client-visible message of the outermost *Error in
// err's chain, or the full error text for unclassified errors.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

package errors

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

// Kind sentinels. Every *Error matches exactly one of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("state conflict")
	ErrNotFound   = errors.New("not found")
)

// Domain errors
var (
	ErrMalformedTimeWindow = Validation("dates", "malformed time window")
	ErrNoCitySelected      = Validation("city", "no city selected")
	ErrAlreadyVoted        = Conflict("event is already upvoted by user")
	ErrNotVoted            = Conflict("event is not upvoted by user")
	ErrAlreadyFavourite    = Conflict("event is already in favourites")
	ErrNotFavourite        = Conflict("event is not in favourites")
	ErrComplaintClosed     = Conflict("complaint is already closed")
)

// Error carries a kind, an optional field name and a caller-facing message.
type Error struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Field == e.Field && t.Message == e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func Validationf(field, format string, args ...any) *Error {
	return Validation(field, fmt.Sprintf(format, args...))
}

func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func NotFound(what string) *Error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// Field returns the offending field of a validation error, if any.
func Field(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

package app

import (
	"errors"
	"fmt"
)

// Kind classifies errors returned to the messaging layer.
type Kind string

const (
	KindConfiguration  Kind = "CONFIGURATION"
	KindAlreadyStarted Kind = "ALREADY_STARTED"
	KindNotFound       Kind = "NOT_FOUND"
	KindValidation     Kind = "VALIDATION"
)

// Error is an application error with a kind the caller can branch on
// and a message fit for the user.
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

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

func ErrConfiguration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func ErrAlreadyStarted(format string, args ...any) *Error {
	return &Error{Kind: KindAlreadyStarted, Message: fmt.Sprintf(format, args...)}
}

func ErrNotFound(err error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: err}
}

func ErrValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an *Error of kind k anywhere in its chain.
func IsKind(err error, k Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == k
	}
	return false
}

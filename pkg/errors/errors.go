package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the different ways a download can fail
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeHTTP       ErrorType = "http"
	ErrorTypeInvalidURL ErrorType = "invalid_url"
	ErrorTypeSearchURL  ErrorType = "search_url"
	ErrorTypeHTMLPage   ErrorType = "html_page"
	ErrorTypeFilesystem ErrorType = "filesystem"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a classified failure. Code carries the HTTP status when there is one.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

// New creates an Error without an underlying cause
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap classifies err under the given type
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same type, so callers can write
// errors.Is(err, errors.New(errors.ErrorTypeTimeout, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// TypeOf returns the classification of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// StatusCode returns the HTTP status attached to err, or 0
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsUserError reports whether the failure is caused by the input rather than
// the network or the disk.
func IsUserError(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeInvalidURL, ErrorTypeSearchURL, ErrorTypeHTMLPage:
		return true
	default:
		return false
	}
}

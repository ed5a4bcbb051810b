package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorTypeNotARepository  ErrorType = "NOT_A_REPOSITORY"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeFormat          ErrorType = "FORMAT"
	ErrorTypeHashDecode      ErrorType = "HASH_DECODE"
	ErrorTypeIO              ErrorType = "IO"
	ErrorTypeInvalidArgument ErrorType = "INVALID_ARGUMENT"
)

// Error is the error value surfaced by every repository operation.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotARepository(path string) *Error {
	return &Error{
		Type:    ErrorTypeNotARepository,
		Message: "not inside a gyat repository",
		Path:    path,
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

func FormatError(path string, format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeFormat,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func HashDecode(s string, err error) *Error {
	return &Error{
		Type:    ErrorTypeHashDecode,
		Message: fmt.Sprintf("cannot decode %q as a hash", s),
		Err:     err,
	}
}

func IO(path string, err error) *Error {
	return &Error{
		Type: ErrorTypeIO,
		Path: path,
		Err:  err,
	}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// TypeOf returns the type of the outermost *Error in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// Is reports whether any *Error in err's chain has type t.
func Is(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

package server

import (
	"errors"
	"fmt"
)

type ErrorCode uint

const (
	ErrUnknown ErrorCode = iota
	ErrInternalServerError
	ErrNotFound
	ErrConflict
	ErrBadParamInput
	ErrInvalidNode
	ErrOutOfBoundsQuery
	ErrInvalidAggregation
	ErrPrecomputeFailed
)

// Error carries an ErrorCode so transport layers can map domain failures
// to status codes without string matching.
type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func WrapErrorf(orig error, code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		orig: orig,
		code: code,
		msg:  fmt.Sprintf(format, a...),
	}
}

func NewErrorf(code ErrorCode, format string, a ...interface{}) error {
	return WrapErrorf(nil, code, format, a...)
}

// GetErrorCode walks the wrap chain and returns the outermost ErrorCode,
// ErrUnknown when err carries none.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ErrUnknown
}

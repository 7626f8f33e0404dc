package protocol

import "errors"

const (
	// Input validation.
	ErrInvalidCoord    = "E_INVALID_COORD"
	ErrUnknownCategory = "E_UNKNOWN_CATEGORY"
	ErrBadRecord       = "E_BAD_RECORD"

	// Persistence boundary.
	ErrNotFound = "E_NOT_FOUND"
	ErrConflict = "E_CONFLICT"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrInvalidCoord:    {},
	ErrUnknownCategory: {},
	ErrBadRecord:       {},
	ErrNotFound:        {},
	ErrConflict:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Coded is implemented by errors that map onto a protocol error code.
type Coded interface {
	error
	Code() string
}

// CodeOf maps err onto a protocol code. Uncoded errors are E_INTERNAL.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrInternal
}

// Error is a plain coded error, usable as a sentinel with errors.Is.
type Error struct {
	code string
	msg  string
}

func NewError(code, msg string) *Error { return &Error{code: code, msg: msg} }

func (e *Error) Error() string { return e.msg }
func (e *Error) Code() string  { return e.code }

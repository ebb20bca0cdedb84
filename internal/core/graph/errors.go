package graph

import "errors"

// Sentinel errors for the runtime's failure categories. Operations wrap these
// so callers can match with errors.Is regardless of the message.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotReady        = errors.New("not ready")
	ErrInternal        = errors.New("internal error")
)

// ErrorCode classifies a runtime error.
type ErrorCode uint8

const (
	CodeNone ErrorCode = iota
	CodeNotFound
	CodeInvalidArgument
	CodeTypeMismatch
	CodeAlreadyExists
	CodeNotReady
	CodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeTypeMismatch:
		return "type_mismatch"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeNotReady:
		return "not_ready"
	case CodeInternal:
		return "internal"
	default:
		return "none"
	}
}

var codeSentinels = map[ErrorCode]error{
	CodeNotFound:        ErrNotFound,
	CodeInvalidArgument: ErrInvalidArgument,
	CodeTypeMismatch:    ErrTypeMismatch,
	CodeAlreadyExists:   ErrAlreadyExists,
	CodeNotReady:        ErrNotReady,
	CodeInternal:        ErrInternal,
}

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a runtime error for a code. The cause defaults to the
// code's sentinel so errors.Is keeps working on bare NewError results.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: codeSentinels[code]}
}

// WrapError creates a runtime error around an existing cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the error code from err, unwrapping as needed.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}

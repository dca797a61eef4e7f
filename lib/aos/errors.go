package aos

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode is the outcome of an engine operation.
type RetCode uint8

const (
	RetCSuccess       RetCode = iota // 0: Operation succeeded.
	RetCNotFound                     // 1: No record stored under the key.
	RetCKeyOutOfRange                // 2: Key is above the table's MaxKey.
	RetCUnknownTable                 // 3: Table id is not registered.
	RetCInvalidLength                // 4: Buffer or stored record does not match the record size.
	RetCBackend                      // 5: The storage backend reported an error.
	RetCInvalidTable                 // 6: A table definition is invalid.
	RetCClosed                       // 7: The engine was closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "SUCCESS"
	case RetCNotFound:
		return "NOT_FOUND"
	case RetCKeyOutOfRange:
		return "KEY_OUT_OF_RANGE"
	case RetCUnknownTable:
		return "UNKNOWN_TABLE"
	case RetCInvalidLength:
		return "INVALID_LENGTH"
	case RetCBackend:
		return "BACKEND"
	case RetCInvalidTable:
		return "INVALID_TABLE"
	case RetCClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code, a message and, for RetCBackend, the backend error.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying error (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aos error (%s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("aos error (%s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new *Error with the given code and message.
func NewError(code RetCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(code RetCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the return code carried by err.
// nil maps to RetCSuccess and foreign errors to RetCBackend.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var aosErr *Error
	if errors.As(err, &aosErr) {
		return aosErr.Code
	}
	return RetCBackend
}

// IsNotFound reports whether err means that no record is stored under a key.
func IsNotFound(err error) bool {
	return CodeOf(err) == RetCNotFound
}

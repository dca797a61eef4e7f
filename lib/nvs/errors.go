package nvs

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// ErrCode classifies the outcome of a backend operation.
type ErrCode uint8

const (
	ErrCOK             ErrCode = iota // 0: Operation succeeded.
	ErrCNotInitialized                // 1: Partition was not initialised.
	ErrCNotFound                      // 2: Namespace or key does not exist.
	ErrCInvalidHandle                 // 3: Handle was closed or its partition deinitialised.
	ErrCInvalidName                   // 4: Partition, namespace or key name is invalid.
	ErrCKeyTooLong                    // 5: Name exceeds MaxNameLength.
	ErrCInvalidLength                 // 6: Output buffer is smaller than the stored value.
	ErrCNotEnoughSpace                // 7: Partition has no room for the change.
	ErrCReadOnly                      // 8: Handle was opened read-only.
	ErrCValueTooLong                  // 9: Value exceeds MaxBlobSize.
	ErrCCorrupted                     // 10: Partition file is unreadable or the key is wrong.
	ErrCIO                            // 11: Underlying file operation failed.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCOK:
		return "OK"
	case ErrCNotInitialized:
		return "NVS_NOT_INITIALIZED"
	case ErrCNotFound:
		return "NVS_NOT_FOUND"
	case ErrCInvalidHandle:
		return "NVS_INVALID_HANDLE"
	case ErrCInvalidName:
		return "NVS_INVALID_NAME"
	case ErrCKeyTooLong:
		return "NVS_KEY_TOO_LONG"
	case ErrCInvalidLength:
		return "NVS_INVALID_LENGTH"
	case ErrCNotEnoughSpace:
		return "NVS_NOT_ENOUGH_SPACE"
	case ErrCReadOnly:
		return "NVS_READ_ONLY"
	case ErrCValueTooLong:
		return "NVS_VALUE_TOO_LONG"
	case ErrCCorrupted:
		return "NVS_CORRUPTED"
	case ErrCIO:
		return "NVS_IO"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code, a message and an optional cause.
type Error struct {
	Code ErrCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying error (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nvs error (%s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("nvs error (%s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new *Error with the given code and message.
func NewError(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the return code carried by err.
// nil maps to ErrCOK and errors not created by this package to ErrCIO.
func CodeOf(err error) ErrCode {
	if err == nil {
		return ErrCOK
	}
	var nvsErr *Error
	if errors.As(err, &nvsErr) {
		return nvsErr.Code
	}
	return ErrCIO
}

// IsNotFound reports whether err means a missing key or namespace.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCNotFound
}

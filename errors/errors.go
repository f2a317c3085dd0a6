package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Pipeline error kinds. Each one maps to a row in the error handling table:
// signature failures are terminal for the delivery, metadata failures go to the
// failure recorder, duplicates are success no-ops.
var (
	ErrSignatureInvalid           = errors.New("signature invalid")
	ErrMissingMetadata            = errors.New("missing metadata")
	ErrDuplicateTransaction       = errors.New("duplicate transaction")
	ErrPartialWriteFailure        = errors.New("partial write failure")
	ErrInvalidLifecycleTransition = errors.New("invalid lifecycle transition")
)

// ReconciliationTimeout is returned when the poller exhausts its attempt
// budget. Fragment is the last characters of the transaction id, short enough
// for a buyer to read to support.
type ReconciliationTimeout struct {
	Fragment string
	Attempts int
}

func (e *ReconciliationTimeout) Error() string {
	return fmt.Sprintf("order not found after %d attempts (ref %s)", e.Attempts, e.Fragment)
}

package reconcile

import (
	"errors"
	"fmt"
)

// Machine-readable error codes surfaced to the API layer.
const (
	CodeWrongQRType       = "WRONG_QR_TYPE"
	CodeNoValidCodes      = "NO_VALID_CODES"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeCodesNotFound     = "CODES_NOT_FOUND"
	CodeBufferAlreadyUsed = "BUFFER_ALREADY_USED"
)

// Error is a request-level engine error with a machine-readable code.
// Handlers map codes onto HTTP statuses; Message is safe to show to the user.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsEngineError unwraps err into an *Error if it carries one.
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrDuplicateJob is returned by JobStore.CreateJob when the database rejects
// the insert on the one-active-job-per-case unique index. The engine treats it
// exactly like the idempotency skip: another request got there first.
var ErrDuplicateJob = errors.New("reverse job already exists for case")

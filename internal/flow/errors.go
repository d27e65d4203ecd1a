package flow

import "fmt"

type ErrorCode string

const (
	ErrorInvalidMode ErrorCode = "INVALID_MODE"
	ErrorStorage     ErrorCode = "STORAGE_ERROR"
)

// Error is a flow-level failure that is not recoverable by re-prompting the
// user, e.g. the trip store being unreachable. Validation failures never
// become an Error; they stay inside the flow as corrective re-prompts.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("flow: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("flow: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

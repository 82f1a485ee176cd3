package engine

import (
	"errors"
	"fmt"
)

// ErrDevtoolsUnavailable is returned when the devtools panel is requested
// but no devtools source was configured.
var ErrDevtoolsUnavailable = errors.New("devtools source not configured")

// ControlError represents a failed control request.
//
// Control errors never cross the page boundary as errors: HandleControl
// turns them into an alert or console.error command. Dispatch returns them
// so command-line callers can choose an exit code.
type ControlError struct {
	// Code identifies the error category.
	Code ControlErrorCode

	// Action is the requested control action.
	Action string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ControlErrorCode categorizes control errors.
type ControlErrorCode string

const (
	// ErrCodeInvalidScript indicates an install payload that is not a userscript.
	ErrCodeInvalidScript ControlErrorCode = "INVALID_SCRIPT"

	// ErrCodeInvalidPayload indicates a payload of the wrong shape.
	ErrCodeInvalidPayload ControlErrorCode = "INVALID_PAYLOAD"

	// ErrCodeStore indicates the script store failed.
	ErrCodeStore ControlErrorCode = "STORE_FAILURE"

	// ErrCodeUnknownAction indicates an action outside the supported set.
	ErrCodeUnknownAction ControlErrorCode = "UNKNOWN_ACTION"
)

// Error implements the error interface.
func (e *ControlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Action, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ControlError) Unwrap() error {
	return e.Err
}

// IsControlError reports whether err is a ControlError with the given code.
// Uses errors.As to handle wrapped errors.
func IsControlError(err error, code ControlErrorCode) bool {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newControlError(code ControlErrorCode, action, msg string, err error) *ControlError {
	return &ControlError{Code: code, Action: action, Message: msg, Err: err}
}

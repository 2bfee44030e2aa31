package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn indicates that a required column is absent from the input
	ErrMissingColumn = errors.New("required column missing")

	// ErrEmptyDataset indicates that the input dataset contains no trial records
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrValueParse indicates that an onset value could not be parsed as a number
	ErrValueParse = errors.New("onset value is not numeric")

	// ErrPayloadParse indicates that a trial's structured payload is malformed
	ErrPayloadParse = errors.New("malformed payload")

	// ErrNullField indicates that a trial's raw onset field is null
	ErrNullField = errors.New("raw onset field is null")

	// ErrNotConnected indicates that the service is not connected to NATS
	ErrNotConnected = errors.New("not connected to NATS")

	// ErrScriptInvalid indicates that a filter script failed to compile or run
	ErrScriptInvalid = errors.New("invalid filter script")
)

// Error represents a structured module error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// TrialID is the trial the error is scoped to, if any
	TrialID string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.TrialID != "" && e.Err != nil:
		return fmt.Sprintf("[%s] trial %s: %s: %v", e.Code, e.TrialID, e.Message, e.Err)
	case e.TrialID != "":
		return fmt.Sprintf("[%s] trial %s: %s", e.Code, e.TrialID, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new module error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewTrialError creates a new module error scoped to a trial
func NewTrialError(code, trialID, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		TrialID: trialID,
		Err:     err,
	}
}

// IsValueParse checks if an error is a numeric parse error
func IsValueParse(err error) bool {
	return errors.Is(err, ErrValueParse)
}

// IsPayloadParse checks if an error is a payload parse error
func IsPayloadParse(err error) bool {
	return errors.Is(err, ErrPayloadParse)
}

package expand

import (
	"fmt"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("expand config error [%s]: %s", e.Field, e.Message)
}

func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// ValueError reports a single onset value that could not be parsed as a
// number. The raw fragment is preserved verbatim so the offending export
// cell can be located.
type ValueError struct {
	TrialID  string
	Field    string
	Fragment string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("trial %s: field %s: cannot parse %q as a number", e.TrialID, e.Field, e.Fragment)
}

func (e *ValueError) Unwrap() error { return onseterrors.ErrValueParse }

func NewValueError(trialID, field, fragment string) *ValueError {
	return &ValueError{TrialID: trialID, Field: field, Fragment: fragment}
}

// PayloadError reports a trial whose structured payload could not be parsed,
// or whose onset field holds a value that is not an array.
type PayloadError struct {
	TrialID string
	Message string
	Cause   error
}

func (e *PayloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("trial %s: %s: %v", e.TrialID, e.Message, e.Cause)
	}
	return fmt.Sprintf("trial %s: %s", e.TrialID, e.Message)
}

func (e *PayloadError) Unwrap() error { return onseterrors.ErrPayloadParse }

func NewPayloadError(trialID, message string, cause error) *PayloadError {
	return &PayloadError{TrialID: trialID, Message: message, Cause: cause}
}

// NullFieldError reports a trial whose raw onset field is null while the
// configured policy requires it to be present.
type NullFieldError struct {
	TrialID string
	Field   string
}

func (e *NullFieldError) Error() string {
	return fmt.Sprintf("trial %s: field %s is null", e.TrialID, e.Field)
}

func (e *NullFieldError) Unwrap() error { return onseterrors.ErrNullField }

func NewNullFieldError(trialID, field string) *NullFieldError {
	return &NullFieldError{TrialID: trialID, Field: field}
}

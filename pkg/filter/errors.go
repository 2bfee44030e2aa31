package filter

import (
	"fmt"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
)

// ScriptError represents a filter script that failed to compile or run.
type ScriptError struct {
	Message string
	Cause   error
}

func (e *ScriptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filter script error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("filter script error: %s", e.Message)
}

func (e *ScriptError) Unwrap() error { return onseterrors.ErrScriptInvalid }

func NewScriptError(message string, cause error) *ScriptError {
	return &ScriptError{Message: message, Cause: cause}
}

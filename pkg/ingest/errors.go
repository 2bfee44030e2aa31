package ingest

import "fmt"

// FormatError represents a structural problem in a trial export.
type FormatError struct {
	Line    int
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export line %d: %s: %v", e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("export line %d: %s", e.Line, e.Message)
}

func (e *FormatError) Unwrap() error { return e.Err }

func NewFormatError(line int, message string, err error) *FormatError {
	return &FormatError{Line: line, Message: message, Err: err}
}

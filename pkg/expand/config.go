package expand

// NullFieldPolicy controls how an expander treats a trial whose raw onset
// field is null (column absent for that row).
type NullFieldPolicy string

const (
	// NullFieldSkip emits zero rows for the trial and logs a warning.
	// This keeps the pipeline resilient to partial exports.
	NullFieldSkip NullFieldPolicy = "skip"

	// NullFieldFail records a row error for the trial.
	NullFieldFail NullFieldPolicy = "error"
)

// Config defines configuration shared by the two expanders.
type Config struct {
	// Delimiter separates values in the delimited onset field
	Delimiter string `json:"delimiter"`

	// OnsetKey names the numeric-array field inside the structured payload
	OnsetKey string `json:"onset_key"`

	// NullField selects the policy for null raw fields
	NullField NullFieldPolicy `json:"null_field"`
}

// DefaultConfig returns a configuration with the delimiters and field names
// used by the experiment platform's exports.
func DefaultConfig() Config {
	return Config{
		Delimiter: ",",
		OnsetKey:  "tapping_detected_onsets",
		NullField: NullFieldSkip,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Delimiter == "" {
		return NewConfigError("delimiter", "delimiter cannot be empty")
	}
	if c.OnsetKey == "" {
		return NewConfigError("onset_key", "onset_key cannot be empty")
	}
	switch c.NullField {
	case NullFieldSkip, NullFieldFail:
	default:
		return NewConfigError("null_field", "null_field must be skip|error")
	}
	return nil
}

package filter

// Security levels for script execution.
const (
	SecurityLevelStrict     = "strict"
	SecurityLevelStandard   = "standard"
	SecurityLevelPermissive = "permissive"
)

// Config defines configuration for a scripted observation filter.
type Config struct {
	// Script is JavaScript source that must define keep(observation),
	// returning a truthy value for observations to retain. The observation
	// argument carries participant_id, trial_id and onset_ms.
	Script string `json:"script"`

	// SecurityLevel controls sandbox restrictions (strict|standard|permissive)
	SecurityLevel string `json:"security_level"`
}

// DefaultConfig returns a configuration with standard sandboxing and no
// script; an empty script means the filter passes everything through.
func DefaultConfig() Config {
	return Config{SecurityLevel: SecurityLevelStandard}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.SecurityLevel {
	case SecurityLevelStrict, SecurityLevelStandard, SecurityLevelPermissive:
	default:
		return NewScriptError("security level must be strict|standard|permissive", nil)
	}
	return nil
}

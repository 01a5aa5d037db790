package shared

import (
	"fmt"
)

// Phase names the pipeline step an error came from
type Phase string

const (
	PhaseRead       Phase = "read"
	PhaseParse      Phase = "parse"
	PhaseProve      Phase = "prove"
	PhaseSelfVerify Phase = "self-verify"
	PhaseCrossCheck Phase = "cross-check"
	PhasePersist    Phase = "persist"
	PhaseDecode     Phase = "decode"
	PhaseVerify     Phase = "verify"
	PhaseConfig     Phase = "config"
)

// ZkcatError is the base error type for all zkcat errors
type ZkcatError struct {
	Type    string `json:"type"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
	Cause   error  `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *ZkcatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Phase, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Phase, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ZkcatError) Unwrap() error {
	return e.Cause
}

// IOError covers missing or unreadable files, invalid text and failed writes
type IOError struct {
	*ZkcatError
	Path string `json:"path"`
}

// NewIOError creates a new I/O error
func NewIOError(phase Phase, path string, message string, cause error) *IOError {
	return &IOError{
		ZkcatError: &ZkcatError{
			Type:    "io_error",
			Phase:   phase,
			Message: fmt.Sprintf("%s %s", message, path),
			Cause:   cause,
		},
		Path: path,
	}
}

// EngineError means the proving engine failed to prove, or its proof failed
// the engine's own verification
type EngineError struct {
	*ZkcatError
}

// NewEngineError creates a new engine error
func NewEngineError(phase Phase, message string, cause error) *EngineError {
	return &EngineError{
		ZkcatError: &ZkcatError{
			Type:    "engine_error",
			Phase:   phase,
			Message: message,
			Cause:   cause,
		},
	}
}

// ConsistencyError means the engine's public outputs disagree with what the
// host fed it. The proof may be valid and must still be discarded.
type ConsistencyError struct {
	*ZkcatError
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// NewConsistencyError creates a new consistency error
func NewConsistencyError(message string, expected, actual string) *ConsistencyError {
	return &ConsistencyError{
		ZkcatError: &ZkcatError{
			Type:    "consistency_error",
			Phase:   PhaseCrossCheck,
			Message: message,
		},
		Expected: expected,
		Actual:   actual,
	}
}

// VerificationError means a stored artifact was rejected
type VerificationError struct {
	*ZkcatError
}

// NewVerificationError creates a new verification error
func NewVerificationError(phase Phase, message string, cause error) *VerificationError {
	return &VerificationError{
		ZkcatError: &ZkcatError{
			Type:    "verification_error",
			Phase:   phase,
			Message: message,
			Cause:   cause,
		},
	}
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	*ZkcatError
	Field string `json:"field"` // Which configuration field is invalid
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field string, message string) *ConfigurationError {
	return &ConfigurationError{
		ZkcatError: &ZkcatError{
			Type:    "configuration_error",
			Phase:   PhaseConfig,
			Message: fmt.Sprintf("field '%s': %s", field, message),
		},
		Field: field,
	}
}

package core

import (
	"encoding/json"
	"errors"
	"os"
)

// CLIResponse is the structured JSON envelope emitted by every command when
// --json is set.
//
// Schema:
//
//	{
//	  "success": true|false,
//	  "data": { ... },          // Command-specific payload (omitted on error)
//	  "error": {                // Present only on failure
//	    "code": "SKILL_NOT_FOUND",
//	    "message": "Human-readable description"
//	  }
//	}
type CLIResponse struct {
	Success bool            `json:"success"`
	Data    interface{}     `json:"data,omitempty"`
	Error   *CLIErrorDetail `json:"error,omitempty"`
}

// CLIErrorDetail contains machine-readable error code and human-readable message.
type CLIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CLI exit codes.
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitSkillNotFound    = 2
	ExitInvalidArguments = 3
	ExitValidationFailed = 4
	ExitNetworkError     = 5
	ExitBlockedByPolicy  = 6
	ExitSyncInProgress   = 7
)

// CLI error codes for structured JSON error responses.
const (
	ErrCodeSkillNotFound    = "SKILL_NOT_FOUND"
	ErrCodeSkillExists      = "SKILL_EXISTS"
	ErrCodeInvalidArguments = "INVALID_ARGUMENTS"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeBlockedByPolicy  = "BLOCKED_BY_POLICY"
	ErrCodeSyncInProgress   = "SYNC_IN_PROGRESS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// EmitCLISuccess writes a successful CLIResponse as JSON to stdout.
func EmitCLISuccess(data interface{}) {
	resp := CLIResponse{Success: true, Data: data}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp) //nolint:errcheck
}

// EmitCLIError writes an error CLIResponse as JSON to stdout.
// Returns the exit code for the caller to use with os.Exit.
func EmitCLIError(code string, message string, exitCode int) int {
	resp := CLIResponse{
		Success: false,
		Error:   &CLIErrorDetail{Code: code, Message: message},
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp) //nolint:errcheck
	return exitCode
}

// CLIExitCodeForError maps structured error types to CLI exit codes.
func CLIExitCodeForError(err error) int {
	switch {
	case IsNotFound(err):
		return ExitSkillNotFound
	case IsBlocked(err):
		return ExitBlockedByPolicy
	case errors.Is(err, ErrSyncInProgress):
		return ExitSyncInProgress
	case IsValidationError(err), IsAlreadyExists(err):
		return ExitValidationFailed
	case IsNetworkError(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// CLIErrorCodeForError maps structured error types to CLI error code strings.
func CLIErrorCodeForError(err error) string {
	switch {
	case IsNotFound(err):
		return ErrCodeSkillNotFound
	case IsAlreadyExists(err):
		return ErrCodeSkillExists
	case IsBlocked(err):
		return ErrCodeBlockedByPolicy
	case errors.Is(err, ErrSyncInProgress):
		return ErrCodeSyncInProgress
	case IsValidationError(err):
		return ErrCodeValidationFailed
	case IsNetworkError(err):
		return ErrCodeNetworkError
	default:
		return ErrCodeInternalError
	}
}

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/skillsync-dev/skillsync/internal/types"
)

func TestCLIErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantExit int
		wantCode string
	}{
		{"not found", NewNotFoundError("x"), ExitSkillNotFound, ErrCodeSkillNotFound},
		{"already exists", NewAlreadyExistsError("x"), ExitValidationFailed, ErrCodeSkillExists},
		{"validation", NewValidationError("name", "bad", "invalid"), ExitValidationFailed, ErrCodeValidationFailed},
		{"blocked", NewBlockedError("x", types.RiskCritical), ExitBlockedByPolicy, ErrCodeBlockedByPolicy},
		{"sync in progress", ErrSyncInProgress, ExitSyncInProgress, ErrCodeSyncInProgress},
		{"network", NewNetworkError("fetch", errors.New("timeout")), ExitNetworkError, ErrCodeNetworkError},
		{"unknown", errors.New("something else"), ExitGeneralError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CLIExitCodeForError(tt.err); got != tt.wantExit {
				t.Errorf("exit code = %d, want %d", got, tt.wantExit)
			}
			if got := CLIErrorCodeForError(tt.err); got != tt.wantCode {
				t.Errorf("error code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestCLIErrorMappingUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("install skill: %w", NewNotFoundError("ghost"))
	if got := CLIExitCodeForError(wrapped); got != ExitSkillNotFound {
		t.Errorf("exit code = %d, want %d for wrapped NotFoundError", got, ExitSkillNotFound)
	}
	if got := CLIErrorCodeForError(wrapped); got != ErrCodeSkillNotFound {
		t.Errorf("error code = %s", got)
	}
}

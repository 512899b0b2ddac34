package core

import (
	"errors"
	"fmt"

	"github.com/skillsync-dev/skillsync/internal/types"
)

// Sentinel errors for common conditions.
// These can be used with errors.Is() for error type checking.
var (
	// ErrSyncInProgress indicates a sync is already running for the scope.
	// Concurrent syncs are rejected, not queued.
	ErrSyncInProgress = errors.New("a sync is already running for this scope")

	// ErrSyncDisabled indicates the scope's sync policy is disabled
	ErrSyncDisabled = errors.New("sync is disabled for this scope")
)

// ValidationError indicates a bad skill name or source URL, rejected before
// any I/O happens.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError creates a ValidationError for a field/value pair.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError indicates a named skill does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill '%s' not found", e.Name)
}

// NewNotFoundError creates a NotFoundError for a skill name.
func NewNotFoundError(name string) *NotFoundError {
	return &NotFoundError{Name: name}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AlreadyExistsError indicates a skill is already installed and force was
// not requested.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("skill '%s' is already installed (use --force to overwrite)", e.Name)
}

// NewAlreadyExistsError creates an AlreadyExistsError for a skill name.
func NewAlreadyExistsError(name string) *AlreadyExistsError {
	return &AlreadyExistsError{Name: name}
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae *AlreadyExistsError
	return errors.As(err, &ae)
}

// BlockedError indicates content failed the risk gate. Overridable is false
// for critical risk: no force flag exists for that case, and callers are
// expected to message the two cases differently.
type BlockedError struct {
	Name        string
	Risk        types.RiskLevel
	Overridable bool
}

func (e *BlockedError) Error() string {
	if e.Overridable {
		return fmt.Sprintf("skill '%s' blocked: %s risk (re-run with --force to install anyway)", e.Name, e.Risk)
	}
	return fmt.Sprintf("skill '%s' blocked: critical risk detected, installation is not permitted", e.Name)
}

// NewBlockedError creates a BlockedError for the given realized risk.
func NewBlockedError(name string, risk types.RiskLevel) *BlockedError {
	return &BlockedError{Name: name, Risk: risk, Overridable: risk != types.RiskCritical}
}

// IsBlocked reports whether err is a BlockedError.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// NetworkError wraps a remote call failure. Always recoverable and
// reportable, never fatal to the process.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps err as a NetworkError for the given operation.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// IsNetworkError reports whether err is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

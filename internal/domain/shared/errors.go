// Package shared contains common domain types and errors that are used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Persistence errors
	ErrPersistence = errors.New("persistence failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "xp", "streak", "leaderboard"
	Op      string // Operation that failed, e.g., "Reconcile", "Advance"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// XP record domain errors
var (
	ErrRecordNotFound    = NewDomainError("xp", "Find", ErrNotFound, "xp record not found")
	ErrRecordExists      = NewDomainError("xp", "Create", ErrAlreadyExists, "xp record already exists")
	ErrInvalidUserID     = NewDomainError("xp", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidWalletFmt  = NewDomainError("xp", "Validate", ErrInvalidFormat, "invalid wallet address format")
	ErrNegativeXP        = NewDomainError("xp", "Validate", ErrNegativeValue, "xp cannot be negative")
	ErrTotalXPRegression = NewDomainError("xp", "Reconcile", ErrInvalidState, "total xp cannot decrease")
)

// Streak domain errors
var (
	ErrStreakNotFound    = NewDomainError("streak", "Find", ErrNotFound, "streak state not found")
	ErrNoFreezeAvailable = NewDomainError("streak", "ConsumeFreeze", ErrInvalidState, "no streak freeze available")
)

// Leaderboard domain errors
var (
	ErrInvalidTimeframe = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid timeframe")
	ErrInvalidSortBy    = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid sort field")
	ErrInvalidPage      = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "invalid pagination parameters")
)

// External service errors
var (
	ErrLedgerUnavailable = NewDomainError("ledger", "Request", ErrServiceUnavailable, "ledger RPC is unavailable")
	ErrLedgerTimeout     = NewDomainError("ledger", "Request", ErrTimeout, "ledger RPC request timeout")
	ErrLedgerRateLimited = NewDomainError("ledger", "Request", ErrRateLimited, "ledger RPC rate limit exceeded")
	ErrLedgerBadResponse = NewDomainError("ledger", "Parse", ErrInvalidFormat, "invalid response from ledger RPC")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPersistence checks if the error is a record store failure.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsTransient checks if the error is a transient external failure.
// Transient ledger failures are never surfaced to leaderboard callers.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

package model

import (
	"errors"
	"fmt"
)

// Errors callers are expected to branch on
var (
	// Identity errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrIdentityConflict = errors.New("credential already belongs to a different player")
	ErrNoIdentity       = errors.New("no identity in request")
	ErrPlayerNotFound   = errors.New("player not found")

	// Character errors
	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterInUse    = errors.New("character is used by a list membership")
	ErrCharacterOwned    = errors.New("character is registered to another player")
	ErrLookupTimeout     = errors.New("character lookup timed out")
	ErrLookupUnavailable = errors.New("character lookup unavailable")

	// Validation errors; see ValidationError for details
	ErrValidation = errors.New("validation failed")

	// List and membership errors
	ErrListNotFound           = errors.New("list not found")
	ErrInvalidShareCode       = errors.New("invalid share code")
	ErrListFull               = errors.New("list is full")
	ErrAlreadyMember          = errors.New("player is already a member of this list")
	ErrCharacterAlreadyMember = errors.New("character is already a member of this list")
	ErrWorldMismatch          = errors.New("character world does not match list world")
	ErrNotMember              = errors.New("player is not a member of this list")
	ErrOwnerCannotLeave       = errors.New("the list owner cannot leave the list")

	// Soul core errors
	ErrDuplicateCore     = errors.New("creature is already tracked in this list")
	ErrInvalidTransition = errors.New("invalid soul core transition")
	ErrCoreNotFound      = errors.New("soul core not found")

	// Collection errors
	ErrSuggestionNotFound = errors.New("no pending suggestion for creature")

	// Catalog errors
	ErrCatalogNotLoaded = errors.New("creature catalog not loaded")
)

// Errors raised by storage backends. Services translate or retry them.
var (
	ErrShareCodeTaken   = errors.New("share code already in use")
	ErrCharacterExists  = errors.New("character already registered in this world")
	ErrCredentialTaken  = errors.New("username already registered")
	ErrTxConflict       = errors.New("concurrent update conflict")
	ErrIntegrity        = errors.New("storage integrity violation")
	ErrNotAnonymous     = errors.New("player is not anonymous")
	ErrSessionTokenUsed = errors.New("session token already in use")
)

// ValidationError describes why an input was rejected.
// errors.Is(err, ErrValidation) matches every ValidationError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func transitionError(from, to CoreState) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

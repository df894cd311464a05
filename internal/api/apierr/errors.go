package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/list"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeValidation             = "VALIDATION_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeIdentityConflict       = "IDENTITY_CONFLICT"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeCharacterNotFound      = "CHARACTER_NOT_FOUND"
	CodeCharacterInUse         = "CHARACTER_IN_USE"
	CodeCharacterOwned         = "CHARACTER_OWNED"
	CodeNoSuggestion           = "SUGGESTION_NOT_FOUND"
	CodeLookupTimeout          = "LOOKUP_TIMEOUT"
	CodeLookupUnavailable      = "LOOKUP_UNAVAILABLE"
	CodeListNotFound           = "LIST_NOT_FOUND"
	CodeInvalidShareCode       = "INVALID_SHARE_CODE"
	CodeListFull               = "LIST_FULL"
	CodeAlreadyMember          = "ALREADY_MEMBER"
	CodeCharacterAlreadyMember = "CHARACTER_ALREADY_MEMBER"
	CodeWorldMismatch          = "WORLD_MISMATCH"
	CodeNotMember              = "NOT_MEMBER"
	CodeOwnerCannotLeave       = "OWNER_CANNOT_LEAVE"
	CodeDuplicateCore          = "DUPLICATE_CORE"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeCoreNotFound           = "CORE_NOT_FOUND"
	CodeConcurrentUpdate       = "CONCURRENT_UPDATE"
	CodeRateLimited            = "RATE_LIMITED"
	CodeUnavailable            = "SERVICE_UNAVAILABLE"
	CodeInternalError          = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error is reported with
func Status(err error) int {
	return toHTTPError(err).status
}

func newError(status int, code, message string) *httpError {
	return &httpError{status, APIError{Code: code, Message: message}}
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &httpError{http.StatusBadRequest, APIError{Code: CodeValidation, Message: ve.Error(), Field: ve.Field}}
	}

	switch {
	// Identity errors
	case errors.Is(err, model.ErrNoIdentity):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	case errors.Is(err, model.ErrCharacterOwned):
		return newError(http.StatusForbidden, CodeCharacterOwned, "Character is registered to another player")
	case errors.Is(err, auth.ErrNotConfigured):
		return newError(http.StatusServiceUnavailable, CodeUnavailable, "Accounts are not enabled on this server")
	case errors.Is(err, model.ErrUnauthorized):
		return newError(http.StatusForbidden, CodeForbidden, "Not allowed")
	case errors.Is(err, model.ErrIdentityConflict):
		return newError(http.StatusConflict, CodeIdentityConflict, "Credential belongs to a different player")
	case errors.Is(err, model.ErrPlayerNotFound):
		return newError(http.StatusNotFound, CodePlayerNotFound, "Player not found")

	// Character errors
	case errors.Is(err, model.ErrCharacterNotFound):
		return newError(http.StatusNotFound, CodeCharacterNotFound, "Character not found")
	case errors.Is(err, model.ErrCharacterInUse):
		return newError(http.StatusConflict, CodeCharacterInUse, "Character is still a member of a list")
	case errors.Is(err, model.ErrLookupTimeout):
		return newError(http.StatusGatewayTimeout, CodeLookupTimeout, "Character lookup timed out")
	case errors.Is(err, model.ErrLookupUnavailable):
		return newError(http.StatusBadGateway, CodeLookupUnavailable, "Character lookup is unavailable")

	// List and membership errors
	case errors.Is(err, model.ErrListNotFound):
		return newError(http.StatusNotFound, CodeListNotFound, "List not found")
	case errors.Is(err, model.ErrInvalidShareCode):
		return newError(http.StatusNotFound, CodeInvalidShareCode, "Share code is not valid")
	case errors.Is(err, model.ErrListFull):
		return newError(http.StatusConflict, CodeListFull, "List is full")
	case errors.Is(err, model.ErrAlreadyMember):
		return newError(http.StatusConflict, CodeAlreadyMember, "Already a member of this list")
	case errors.Is(err, model.ErrCharacterAlreadyMember):
		return newError(http.StatusConflict, CodeCharacterAlreadyMember, "Character is already a member of this list")
	case errors.Is(err, model.ErrWorldMismatch):
		return newError(http.StatusConflict, CodeWorldMismatch, "Character world does not match the list world")
	case errors.Is(err, model.ErrNotMember):
		return newError(http.StatusNotFound, CodeNotMember, "Not a member of this list")
	case errors.Is(err, model.ErrOwnerCannotLeave):
		return newError(http.StatusConflict, CodeOwnerCannotLeave, "The owner cannot leave the list")
	case errors.Is(err, list.ErrShareCodeExhausted):
		return newError(http.StatusServiceUnavailable, CodeUnavailable, "Could not allocate a share code, try again")

	// Soul core errors
	case errors.Is(err, model.ErrDuplicateCore):
		return newError(http.StatusConflict, CodeDuplicateCore, "Creature is already tracked")
	case errors.Is(err, model.ErrInvalidTransition):
		return newError(http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, model.ErrCoreNotFound):
		return newError(http.StatusNotFound, CodeCoreNotFound, "Soul core not found")
	case errors.Is(err, model.ErrSuggestionNotFound):
		return newError(http.StatusNotFound, CodeNoSuggestion, "No pending suggestion for that creature")
	case errors.Is(err, model.ErrCatalogNotLoaded):
		return newError(http.StatusServiceUnavailable, CodeUnavailable, "Creature catalog is not loaded")

	// Storage errors
	case errors.Is(err, model.ErrTxConflict):
		return newError(http.StatusConflict, CodeConcurrentUpdate, "Concurrent update, try again")

	default:
		return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// NewInvalidTokenError creates an error for a rejected bearer token
func NewInvalidTokenError() error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
}

// NewInvalidCredentialsError creates a failed login error
func NewInvalidCredentialsError() error {
	return newError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return newError(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
}

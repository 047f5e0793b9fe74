package errors

import (
	"fmt"
	"net/http"
)

// APIError is the error shape every handler ultimately responds with.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, internal error) *APIError {
	return &APIError{Status: status, Message: message, Internal: internal}
}

func BadRequest(message string, internal error) *APIError {
	return New(http.StatusBadRequest, message, internal)
}

func Unauthorized(message string, internal error) *APIError {
	return New(http.StatusUnauthorized, message, internal)
}

func Forbidden(message string, internal error) *APIError {
	return New(http.StatusForbidden, message, internal)
}

func NotFound(message string, internal error) *APIError {
	return New(http.StatusNotFound, message, internal)
}

func Conflict(message string, internal error) *APIError {
	return New(http.StatusConflict, message, internal)
}

func UnprocessableEntity(message string, internal error) *APIError {
	return New(http.StatusUnprocessableEntity, message, internal)
}

func Internal(internal error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", internal)
}

// NewValidationError wraps a binding/validation failure as a 422
func NewValidationError(internal error) *APIError {
	return UnprocessableEntity("Validation failed", internal)
}

// Domain errors for tag assignment. Kept as typed errors so services can
// return them and handlers can map them without string matching.

// MultipleCategoryError: a batch assignment carried more than one category tag.
type MultipleCategoryError struct {
	TagIDs []uint64
}

func (e *MultipleCategoryError) Error() string {
	return fmt.Sprintf("assignment contains %d category tags, at most one allowed", len(e.TagIDs))
}

// CategoryConflictError: a batch assignment tried to switch the item's category
// outside of the dedicated category-change endpoint.
type CategoryConflictError struct {
	CurrentID uint64
	NewID     uint64
}

func (e *CategoryConflictError) Error() string {
	return fmt.Sprintf("item already categorized with tag %d, can't introduce tag %d in a batch assignment", e.CurrentID, e.NewID)
}

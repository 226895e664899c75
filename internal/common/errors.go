package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents a standard structure for API errors.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Message=%s", e.StatusCode, e.Code, e.Message)
}

// Is matches APIErrors by code so that detail-carrying copies still compare
// equal to the package-level sentinels via errors.Is.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if errors.As(target, &apiErr) {
		return apiErr.Code == e.Code
	}
	return false
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy carrying the given details. The sentinels below
// are shared across requests and must never be mutated.
func (e *APIError) WithDetails(details interface{}) *APIError {
	clone := *e
	clone.Details = details
	return &clone
}

var (
	ErrBadRequest          = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized        = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required and has failed or has not yet been provided.")
	ErrForbidden           = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource.")
	ErrNotFound            = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrConflict            = NewAPIError(http.StatusConflict, "CONFLICT", "A conflict occurred with the current state of the resource.")
	ErrUnprocessableEntity = NewAPIError(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "The request was well-formed but was unable to be followed due to semantic errors.")
	ErrInternalServer      = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrServiceUnavailable  = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")
)

// Identity and session lifecycle errors. Expected, recoverable outcomes
// surfaced to the caller as 4xx responses, never logged as server errors.
var (
	ErrDuplicateEmail             = NewAPIError(http.StatusConflict, "DUPLICATE_EMAIL", "A user with this email already exists.")
	ErrDuplicateUsername          = NewAPIError(http.StatusConflict, "DUPLICATE_USERNAME", "This username is already taken.")
	ErrUniquenessViolation        = NewAPIError(http.StatusConflict, "UNIQUENESS_VIOLATION", "A unique field collides with an existing user.")
	ErrTokenInvalid               = NewAPIError(http.StatusBadRequest, "TOKEN_INVALID", "The token is malformed or its signature is invalid.")
	ErrTokenExpired               = NewAPIError(http.StatusBadRequest, "TOKEN_EXPIRED", "The token has expired.")
	ErrInvalidTokenType           = NewAPIError(http.StatusBadRequest, "INVALID_TOKEN_TYPE", "The token is not valid for this operation.")
	ErrStoredTokenMismatch        = NewAPIError(http.StatusBadRequest, "STORED_TOKEN_MISMATCH", "The token has been superseded or already used.")
	ErrUserNotFound               = NewAPIError(http.StatusNotFound, "USER_NOT_FOUND", "No user matches the given identifier.")
	ErrFederatedProfileIncomplete = NewAPIError(http.StatusBadRequest, "FEDERATED_PROFILE_INCOMPLETE", "The identity provider did not supply the required profile fields.")
	ErrReconciliationConflict     = NewAPIError(http.StatusConflict, "RECONCILIATION_CONFLICT", "The federated identity could not be reconciled with the local account store.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidationAPIError(details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Message:    "Input validation failed.",
		Details:    details,
	}
}

// FormatValidationErrors converts validator.ValidationErrors into a map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ToLower(field))
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", strings.ToLower(field))
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", strings.ToLower(field), e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", strings.ToLower(field), e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", strings.ToLower(field), e.Param())
		case "alphanum":
			message = fmt.Sprintf("The %s field may only contain alphanumeric characters.", strings.ToLower(field))
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}

package errors

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is returned when a credential is missing or invalid.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when a valid identity lacks the required permission.
	ErrForbidden = errors.New("permission denied")
	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignature is returned when a token's signature check fails.
	ErrTokenSignature = errors.New("invalid token signature")
	// ErrWrongTokenType is returned when a token's type claim does not match the expected type.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrTokenMalformed is returned when a token cannot be parsed.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrNotFound is returned when a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrCyclicHierarchy is returned when a category move would create a cycle.
	ErrCyclicHierarchy = errors.New("category move would create a cycle")
	// ErrInvalidParent is returned when a comment parent belongs to a different post.
	ErrInvalidParent = errors.New("parent comment belongs to a different post")
	// ErrConflict is returned on a unique-constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned when username/email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountDisabled is returned when the account is banned or deactivated.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrCommentsClosed is returned when a post does not accept comments.
	ErrCommentsClosed = errors.New("comments are closed for this post")
	// ErrRetryable is returned when a transient store failure survived a retry.
	ErrRetryable = errors.New("temporary failure, retry the request")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrTokenExpired):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenExpired.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrTokenSignature):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenSignature.Error(), "INVALID_SIGNATURE")
	case errors.Is(err, ErrWrongTokenType):
		return NewHTTPError(http.StatusUnauthorized, ErrWrongTokenType.Error(), "WRONG_TOKEN_TYPE")
	case errors.Is(err, ErrTokenMalformed):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenMalformed.Error(), "MALFORMED_TOKEN")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrAccountDisabled):
		return NewHTTPError(http.StatusForbidden, ErrAccountDisabled.Error(), "ACCOUNT_DISABLED")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrCyclicHierarchy):
		return NewHTTPError(http.StatusConflict, ErrCyclicHierarchy.Error(), "CYCLIC_HIERARCHY")
	case errors.Is(err, ErrInvalidParent):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidParent.Error(), "INVALID_PARENT")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, ErrConflict.Error(), "CONFLICT")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// Two writers raced past an existence check; the unique index is
		// the arbiter and the loser gets a conflict, not a 500.
		return NewHTTPError(http.StatusConflict, ErrConflict.Error(), "CONFLICT")
	case errors.Is(err, ErrCommentsClosed):
		return NewHTTPError(http.StatusForbidden, ErrCommentsClosed.Error(), "COMMENTS_CLOSED")
	case errors.Is(err, ErrRetryable):
		return NewHTTPError(http.StatusServiceUnavailable, ErrRetryable.Error(), "RETRYABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

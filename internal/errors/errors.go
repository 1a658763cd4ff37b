package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingFields is returned when a required request field is absent.
	ErrMissingFields = errors.New("all fields are required")
	// ErrPasswordTooShort is returned when a password is below the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	// ErrNameLength is returned when a user name is outside 3-50 characters.
	ErrNameLength = errors.New("name must be between 3 and 50 characters")
	// ErrInvalidEmail is returned when an email fails format validation.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrMissingTaskFields is returned when title, description or due date is absent.
	ErrMissingTaskFields = errors.New("title, description, and due date are required")
	// ErrTitleLength is returned when a task title is outside 3-100 characters.
	ErrTitleLength = errors.New("title must be between 3 and 100 characters")
	// ErrDescriptionLength is returned when a task description is outside 5-500 characters.
	ErrDescriptionLength = errors.New("description must be between 5 and 500 characters")
	// ErrInvalidDueDate is returned when a due date does not parse to a calendar date.
	ErrInvalidDueDate = errors.New("invalid due date format")
	// ErrDueDateInPast is returned when a due date is before today.
	ErrDueDateInPast = errors.New("due date must be today or in the future")
	// ErrInvalidStatus is returned when a status is not one of the allowed values.
	ErrInvalidStatus = errors.New("invalid status value. Allowed values: To Do, In Progress, Done")
	// ErrTaskNotFound is returned when a task does not exist for the calling owner.
	ErrTaskNotFound = errors.New("task not found")
)

// ErrorResponse represents a standardized error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrPasswordTooShort),
		errors.Is(err, ErrNameLength),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrMissingTaskFields),
		errors.Is(err, ErrTitleLength),
		errors.Is(err, ErrDescriptionLength),
		errors.Is(err, ErrInvalidDueDate),
		errors.Is(err, ErrDueDateInPast),
		errors.Is(err, ErrInvalidStatus):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTaskNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error())
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

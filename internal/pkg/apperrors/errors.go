package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Exam paper errors
var (
	ErrAssessmentNotFound = NewCustomError(ErrResourceNotFound, "assessment not found").WithCode("ASSESSMENT_NOT_FOUND")
	ErrQuestionNotFound   = NewCustomError(ErrResourceNotFound, "question not found").WithCode("QUESTION_NOT_FOUND")
	ErrCourseNotFound     = NewCustomError(ErrResourceNotFound, "course not found").WithCode("COURSE_NOT_FOUND")

	ErrInvalidFile           = errors.New("a .csv file is required")
	ErrEmptyQuestionSet      = errors.New("no valid questions found in uploaded file")
	ErrInvalidScheduleFormat = errors.New("scheduled date must match YYYY-MM-DD HH:mm:ss")
	ErrInvalidTimeFormat     = errors.New("time must match HH:MM:SS")
	ErrInvalidTimeRange      = errors.New("start time must be before end time")

	ErrHasDependentQuestions = NewCustomError(ErrConflict, "assessment still has questions; delete them first").WithCode("HAS_DEPENDENT_QUESTIONS")
	ErrAlreadyPublished      = NewCustomError(ErrConflict, "a published assessment cannot return to draft").WithCode("ALREADY_PUBLISHED")
)

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a field-level message
func NewValidationError(message string, details map[string]interface{}) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: details,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

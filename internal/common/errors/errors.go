// Package errors provides the standardized error taxonomy of the screening service.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Job or its requirement rows unreadable. Needs an operator fix.
	ErrCodeRequirementFetchFailed ErrorCode = "REQUIREMENT_FETCH_FAILED"
	// Transient store failure.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// Blob store rejected or failed an upload.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// Message received in a stage where no trigger matches.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrCodeInvalidStatus  ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound       ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeNotifyFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTurnInProgress ErrorCode = "TURN_IN_PROGRESS"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code so callers can write
// errors.Is(err, errors.RequirementFetch).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is matching.
var (
	RequirementFetch  = &StandardError{Code: ErrCodeRequirementFetchFailed}
	Persistence       = &StandardError{Code: ErrCodePersistenceFailed}
	Upload            = &StandardError{Code: ErrCodeUploadFailed}
	InvalidTransition = &StandardError{Code: ErrCodeInvalidTransition}
	InvalidStatus     = &StandardError{Code: ErrCodeInvalidStatus}
	InvalidRequest    = &StandardError{Code: ErrCodeInvalidRequest}
	NotFound          = &StandardError{Code: ErrCodeNotFound}
	TurnInProgress    = &StandardError{Code: ErrCodeTurnInProgress}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewRequirementFetchError creates a non-retryable requirement loading error.
func NewRequirementFetchError(jobID string, err error) *StandardError {
	details := fmt.Sprintf("jobId: %s", jobID)
	if err != nil {
		details = fmt.Sprintf("jobId: %s, error: %s", jobID, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeRequirementFetchFailed,
		Message:   "Job requirements could not be loaded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPersistenceError creates a retryable store error.
func NewPersistenceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Persistence operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUploadError creates a retryable blob upload error.
func NewUploadError(documentType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Document upload failed",
		Details:   fmt.Sprintf("documentType: %s, error: %s", documentType, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidTransitionError creates a non-retryable transition error.
func NewInvalidTransitionError(stage, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "No transition matches the message in the current stage",
		Details:   fmt.Sprintf("stage: %s, message: %q", stage, message),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusError rejects a status outside the applicant status vocabulary.
func NewInvalidStatusError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "Unknown applicant status",
		Details:   fmt.Sprintf("status: %q", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("Resource not found: %s", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotifyFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTurnInProgressError reports a concurrent turn for the same question.
func NewTurnInProgressError(userID string, questionIndex int) *StandardError {
	return &StandardError{
		Code:      ErrCodeTurnInProgress,
		Message:   "Another turn for this question is still being processed",
		Details:   fmt.Sprintf("userId: %s, questionIndex: %d", userID, questionIndex),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard returns the first StandardError in err's chain, or wraps err as an internal error.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// GetRetryCount returns the recommended client retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailed, ErrCodeNotifyFailed:
		return 3
	case ErrCodeUploadFailed, ErrCodeTurnInProgress:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "REQUIREMENT"), strings.Contains(codeStr, "PERSISTENCE"):
		return "DATABASE"
	case strings.Contains(codeStr, "UPLOAD"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TRANSITION"), strings.Contains(codeStr, "TURN"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

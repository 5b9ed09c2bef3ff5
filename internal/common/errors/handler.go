package errors

import (
	"net/http"
)

// Applicant-facing texts. The chat never shows error details.
const (
	RetryLaterText    = "Sorry, something went wrong on our side. Please try again shortly."
	UploadRetryText   = "We couldn't save your file. Please try uploading it again."
	NotUnderstoodText = "Sorry, I didn't catch that."
	BusyText          = "I'm still processing your previous answer. One moment please."
)

// ErrorHandler turns any error raised during a turn into a logged StandardError
// plus the text and HTTP status the caller should surface.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err, logs it with the given context fields and returns the
// StandardError together with the applicant-facing text.
func (h *ErrorHandler) Handle(err error, fields map[string]interface{}) (*StandardError, string) {
	stdErr := AsStandard(err)
	h.logError(stdErr, fields)
	return stdErr, ApplicantText(stdErr.Code)
}

// ApplicantText maps an error code onto the generic chat message.
func ApplicantText(code ErrorCode) string {
	switch code {
	case ErrCodeUploadFailed:
		return UploadRetryText
	case ErrCodeInvalidTransition:
		return NotUnderstoodText
	case ErrCodeTurnInProgress:
		return BusyText
	default:
		return RetryLaterText
	}
}

// HTTPStatus maps an error code onto the status used by the HTTP layer.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTurnInProgress:
		return http.StatusConflict
	case ErrCodePersistenceFailed, ErrCodeUploadFailed, ErrCodeRequirementFetchFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ErrorHandler) logError(stdErr *StandardError, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	// A message that matches no trigger is expected traffic, not a fault.
	if stdErr.Code == ErrCodeInvalidTransition || stdErr.Code == ErrCodeTurnInProgress {
		h.logger.Warn("turn rejected", entry)
		return
	}
	h.logger.Error("turn failed", entry)
}

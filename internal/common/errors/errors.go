// Package errors provides the standardized error model shared by the HTTP
// API, the CLI and the Camunda job workers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStorageReadFailed     ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed    ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeStorageQuotaExceeded  ErrorCode = "STORAGE_QUOTA_EXCEEDED"
	ErrCodeSerializationFailed   ErrorCode = "SERIALIZATION_FAILED"
	ErrCodeSubmissionNotFound    ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeInvalidSubmissionType ErrorCode = "INVALID_SUBMISSION_TYPE"
	ErrCodeInvalidStatus         ErrorCode = "INVALID_SUBMISSION_STATUS"
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeParseError            ErrorCode = "PARSE_ERROR"

	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowEngine         ErrorCode = "WORKFLOW_ENGINE_ERROR"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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

func (e *StandardError) Unwrap() error {
	return e.cause
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewStorageReadFailedError creates a retryable storage read error.
func NewStorageReadFailedError(err error) *StandardError {
	return newError(ErrCodeStorageReadFailed, "Failed to read submissions from storage", err, true)
}

// NewStorageWriteFailedError creates a retryable storage write error.
func NewStorageWriteFailedError(err error) *StandardError {
	return newError(ErrCodeStorageWriteFailed, "Failed to persist submissions", err, true)
}

// NewStorageQuotaExceededError is not retryable: the same payload will not
// fit on a second attempt.
func NewStorageQuotaExceededError(err error) *StandardError {
	return newError(ErrCodeStorageQuotaExceeded, "Storage quota exceeded", err, false)
}

func NewSerializationFailedError(err error) *StandardError {
	return newError(ErrCodeSerializationFailed, "Failed to serialize submissions", err, false)
}

// NewSubmissionNotFoundError creates a non-retryable not-found error.
func NewSubmissionNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionNotFound,
		Message:   "Submission not found",
		Details:   fmt.Sprintf("submissionId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidSubmissionTypeError(value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSubmissionType,
		Message:   "Unsupported submission type",
		Details:   fmt.Sprintf("type: %q", value),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStatusError(value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "Unsupported submission status",
		Details:   fmt.Sprintf("status: %q", value),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError carries the field-level messages in Metadata.
func NewValidationFailedError(details string, fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submission data validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": fields},
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Failed to parse input", err, false)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err, true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Failed to send notification", err, true)
	e.Metadata = map[string]interface{}{"channel": channel}
	return e
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	e := newError(ErrCodeWorkflowEngine, "Workflow engine request failed", err, retryable)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeStorageReadFailed:      "STORAGE_READ_FAILED",
	ErrCodeStorageWriteFailed:     "STORAGE_WRITE_FAILED",
	ErrCodeStorageQuotaExceeded:   "STORAGE_QUOTA_EXCEEDED",
	ErrCodeSerializationFailed:    "SERIALIZATION_FAILED",
	ErrCodeSubmissionNotFound:     "SUBMISSION_NOT_FOUND",
	ErrCodeInvalidSubmissionType:  "INVALID_SUBMISSION_TYPE",
	ErrCodeInvalidStatus:          "INVALID_SUBMISSION_STATUS",
	ErrCodeValidationFailed:       "VALIDATION_FAILED",
	ErrCodeParseError:             "PARSE_ERROR",
	ErrCodeSearchQueryFailed:      "SEARCH_QUERY_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeWorkflowEngine:         "WORKFLOW_ENGINE_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageReadFailed,
		ErrCodeStorageWriteFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeSearchQueryFailed, ErrCodeWorkflowEngine:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// Normalize returns err as a *StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORAGE") || strings.Contains(codeStr, "SERIALIZATION"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps a code to the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "STORAGE":
		if code == ErrCodeStorageQuotaExceeded {
			return http.StatusInsufficientStorage
		}
		return http.StatusServiceUnavailable
	case "SEARCH", "NOTIFICATION", "WORKFLOW":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

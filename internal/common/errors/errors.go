// Package errors provides standardized error handling for BPMN workflow integration.
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
	ErrCodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
	ErrCodeNoLendersResolved   ErrorCode = "NO_LENDERS_RESOLVED"

	ErrCodeSubmissionNotFound   ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeLenderRecordNotFound ErrorCode = "LENDER_RECORD_NOT_FOUND"
	ErrCodeUnknownLender        ErrorCode = "UNKNOWN_LENDER"

	ErrCodeLenderCallFailed     ErrorCode = "LENDER_CALL_FAILED"
	ErrCodeStoreOperationFailed ErrorCode = "STORE_OPERATION_FAILED"

	ErrCodeInvalidStatusUpdate         ErrorCode = "INVALID_STATUS_UPDATE"
	ErrCodeInvalidTransition           ErrorCode = "INVALID_TRANSITION"
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditIndexFailed       ErrorCode = "AUDIT_INDEX_FAILED"

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
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

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

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateSubmissionError(applicationID string) *StandardError {
	return newError(ErrCodeDuplicateSubmission, "Application is already being processed",
		fmt.Sprintf("applicationId: %s", applicationID), false).
		WithMetadata("applicationId", applicationID)
}

func NewNoLendersResolvedError(applicationID string) *StandardError {
	return newError(ErrCodeNoLendersResolved, "No eligible lenders for application",
		fmt.Sprintf("applicationId: %s", applicationID), false).
		WithMetadata("applicationId", applicationID)
}

func NewSubmissionNotFoundError(applicationID string) *StandardError {
	return newError(ErrCodeSubmissionNotFound, "Submission not found",
		fmt.Sprintf("applicationId: %s", applicationID), false).
		WithMetadata("applicationId", applicationID)
}

func NewLenderRecordNotFoundError(applicationID, lenderID string) *StandardError {
	return newError(ErrCodeLenderRecordNotFound, "Lender application record not found",
		fmt.Sprintf("applicationId: %s, lenderId: %s", applicationID, lenderID), false).
		WithMetadata("applicationId", applicationID).
		WithMetadata("lenderId", lenderID)
}

func NewUnknownLenderError(lenderID string) *StandardError {
	return newError(ErrCodeUnknownLender, "Lender is not in the catalogue",
		fmt.Sprintf("lenderId: %s", lenderID), false)
}

// NewLenderCallFailedError creates a retryable transport error for a single lender.
func NewLenderCallFailedError(lenderID string, err error) *StandardError {
	return newError(ErrCodeLenderCallFailed, "Lender call failed",
		fmt.Sprintf("lenderId: %s, error: %s", lenderID, err.Error()), true)
}

// NewStoreOperationFailedError creates a retryable storage error.
func NewStoreOperationFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStoreOperationFailed, "Submission store operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewInvalidStatusUpdateError(details string) *StandardError {
	return newError(ErrCodeInvalidStatusUpdate, "Invalid lender status update", details, false)
}

func NewInvalidTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidTransition, "Status transition not allowed",
		fmt.Sprintf("from: %s, to: %s", from, to), false)
}

func NewApplicationValidationFailedError(details string) *StandardError {
	return newError(ErrCodeApplicationValidationFailed, "Application data validation failed", details, false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

func NewAuditIndexFailedError(index string, err error) *StandardError {
	return newError(ErrCodeAuditIndexFailed, "Audit indexing failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes caught by
// boundary events in the lending process model.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDuplicateSubmission:         "DUPLICATE_SUBMISSION",
	ErrCodeNoLendersResolved:           "NO_LENDERS_RESOLVED",
	ErrCodeSubmissionNotFound:          "SUBMISSION_NOT_FOUND",
	ErrCodeLenderRecordNotFound:        "LENDER_RECORD_NOT_FOUND",
	ErrCodeUnknownLender:               "LENDER_RECORD_NOT_FOUND",
	ErrCodeLenderCallFailed:            "LENDER_CALL_FAILED",
	ErrCodeStoreOperationFailed:        "STORE_OPERATION_FAILED",
	ErrCodeInvalidStatusUpdate:         "INVALID_STATUS_UPDATE",
	ErrCodeInvalidTransition:           "INVALID_TRANSITION",
	ErrCodeApplicationValidationFailed: "APPLICATION_VALIDATION_FAILED",
	ErrCodeNotificationSendFailed:      "NOTIFICATION_SEND_FAILED",
	ErrCodeAuditIndexFailed:            "AUDIT_INDEX_FAILED",
}

// GetRetryCount returns the job retries granted for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreOperationFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAuditIndexFailed:
		return 3

	case ErrCodeLenderCallFailed:
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

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "UNKNOWN"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "NO_LENDERS"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "LENDER"):
		return "LENDER"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "AUDIT"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

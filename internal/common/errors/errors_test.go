package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"duplicate is a business error", NewDuplicateSubmissionError("APP-1"), "DUPLICATE_SUBMISSION", 0},
		{"store failure retries", NewStoreOperationFailedError("save", stderrors.New("conn reset")), "STORE_OPERATION_FAILED", 3},
		{"lender call retries twice", NewLenderCallFailedError("hdfc", stderrors.New("timeout")), "LENDER_CALL_FAILED", 2},
		{"unknown lender maps to record not found", NewUnknownLenderError("ghost"), "LENDER_RECORD_NOT_FOUND", 0},
		{"unmapped code falls back to itself", &StandardError{Code: "SOMETHING_ELSE", Retryable: true}, "SOMETHING_ELSE", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_NonRetryableZeroesRetries(t *testing.T) {
	stdErr := NewStoreOperationFailedError("save", stderrors.New("x"))
	stdErr.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(stdErr).Retries)
}

func TestToErrorVariables_IncludesMetadata(t *testing.T) {
	vars := ConvertToBPMNError(NewLenderRecordNotFoundError("APP-1", "hdfc")).ToErrorVariables()

	assert.Equal(t, "LENDER_RECORD_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "APP-1", vars["applicationId"])
	assert.Equal(t, "hdfc", vars["lenderId"])
	assert.Equal(t, false, vars["retryable"])
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewNoLendersResolvedError("APP-9"))
	stdErr := Normalize(wrapped)
	assert.Equal(t, ErrCodeNoLendersResolved, stdErr.Code)

	plain := Normalize(stderrors.New("nil pointer"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "nil pointer", plain.Details)
}

func TestRetriesFor(t *testing.T) {
	bpmn := &BPMNError{Retries: 3}
	assert.Equal(t, int32(3), RetriesFor(bpmn, 5))
	assert.Equal(t, int32(1), RetriesFor(bpmn, 1))
	assert.Equal(t, int32(3), RetriesFor(bpmn, 0))
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeSubmissionNotFound:          "NOT_FOUND",
		ErrCodeUnknownLender:               "NOT_FOUND",
		ErrCodeDuplicateSubmission:         "SUBMISSION",
		ErrCodeNoLendersResolved:           "SUBMISSION",
		ErrCodeLenderCallFailed:            "LENDER",
		ErrCodeStoreOperationFailed:        "STORAGE",
		ErrCodeAuditIndexFailed:            "STORAGE",
		ErrCodeNotificationSendFailed:      "NOTIFICATION",
		ErrCodeInvalidTransition:           "VALIDATION",
		ErrCodeApplicationValidationFailed: "VALIDATION",
		ErrCodeInternal:                    "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestStandardError_Error(t *testing.T) {
	err := NewInvalidTransitionError("APPROVED", "SUBMITTED")
	require.Contains(t, err.Error(), "INVALID_TRANSITION")
	assert.Contains(t, err.Error(), "from: APPROVED, to: SUBMITTED")
	assert.True(t, IsRetryableErrorCode(ErrCodeNotificationSendFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidTransition))
}

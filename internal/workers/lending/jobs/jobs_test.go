// internal/workers/lending/jobs/jobs_test.go
package jobs

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		lenderID  string
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{
			name:     "duplicate submission",
			err:      fmt.Errorf("%w: APP-1", orchestrator.ErrDuplicateSubmission),
			wantCode: errors.ErrCodeDuplicateSubmission,
		},
		{
			name:     "no lenders",
			err:      fmt.Errorf("%w: APP-1", orchestrator.ErrNoLenders),
			wantCode: errors.ErrCodeNoLendersResolved,
		},
		{
			name:     "invalid request",
			err:      fmt.Errorf("%w: application id is required", orchestrator.ErrInvalidRequest),
			wantCode: errors.ErrCodeApplicationValidationFailed,
		},
		{
			name:     "invalid transition",
			err:      &orchestrator.TransitionError{From: models.StatusApproved, To: models.StatusRejected},
			wantCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:     "missing record with lender",
			err:      fmt.Errorf("%w: record APP-1_hdfc", store.ErrNotFound),
			lenderID: "hdfc",
			wantCode: errors.ErrCodeLenderRecordNotFound,
		},
		{
			name:     "missing submission",
			err:      fmt.Errorf("%w: submission APP-1", store.ErrNotFound),
			wantCode: errors.ErrCodeSubmissionNotFound,
		},
		{
			name:      "deadline",
			err:       fmt.Errorf("list records: %w", context.DeadlineExceeded),
			wantCode:  errors.ErrCodeStoreOperationFailed,
			retryable: true,
		},
		{
			name:      "anything else is a retryable store failure",
			err:       stderrors.New("connection reset"),
			wantCode:  errors.ErrCodeStoreOperationFailed,
			retryable: true,
		},
		{
			name:     "standard errors pass through",
			err:      fmt.Errorf("wrapped: %w", errors.NewInvalidStatusUpdateError("bad")),
			wantCode: errors.ErrCodeInvalidStatusUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err, "APP-1", tt.lenderID)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}
}

func TestTranslate_Nil(t *testing.T) {
	assert.Nil(t, Translate(nil, "APP-1", ""))
}

func TestTranslate_TransitionDetails(t *testing.T) {
	got := Translate(&orchestrator.TransitionError{From: models.StatusApproved, To: models.StatusFailed}, "APP-1", "hdfc")
	assert.Equal(t, "from: APPROVED, to: FAILED", got.Details)
}

func TestDecode(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"applicationId":"APP-1"}`}}
	var dst struct {
		ApplicationID string `json:"applicationId"`
	}
	require.NoError(t, Decode(job, &dst))
	assert.Equal(t, "APP-1", dst.ApplicationID)

	bad := entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{not json`}}
	err := Decode(bad, &dst)
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeApplicationValidationFailed, stdErr.Code)
}

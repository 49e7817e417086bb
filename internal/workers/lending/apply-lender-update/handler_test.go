// internal/workers/lending/apply-lender-update/handler_test.go
package applylenderupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockUpdater struct {
	ApplyFunc func(ctx context.Context, applicationID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error)
}

func (m *MockUpdater) ApplyExternalUpdate(ctx context.Context, applicationID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error) {
	return m.ApplyFunc(ctx, applicationID, lenderID, update)
}

// applyToRecord mimics the orchestrator by applying the update to a SUBMITTED record.
func applyToRecord(_ context.Context, appID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error) {
	submitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &models.LenderApplication{
		ID:            models.LenderApplicationID(appID, lenderID),
		ApplicationID: appID,
		LenderID:      lenderID,
		Status:        models.StatusSubmitted,
		SubmittedAt:   submitted,
	}
	models.ApplyStatusUpdate(rec, update)
	rec.MarkResponded(submitted.Add(90 * time.Minute))
	return rec, nil
}

func newTestHandler(t *testing.T, updater Updater) *Handler {
	h, err := NewHandler(nil, updater, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok, "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_Execute_Approved(t *testing.T) {
	var got models.StatusUpdate
	updater := &MockUpdater{
		ApplyFunc: func(ctx context.Context, appID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error) {
			got = update
			return applyToRecord(ctx, appID, lenderID, update)
		},
	}

	out, err := newTestHandler(t, updater).Execute(context.Background(), &Input{
		ApplicationID: "APP-1",
		LenderID:      "hdfc",
		Status:        "APPROVED",
		Payload:       json.RawMessage(`{"terms":{"interestRate":9.75,"approvedAmount":540000,"tenureMonths":60,"emi":11407}}`),
	})
	require.NoError(t, err)

	approved, ok := got.(models.ApprovedUpdate)
	require.True(t, ok)
	assert.Equal(t, 9.75, approved.Terms.InterestRate)

	assert.True(t, out.Updated)
	assert.Equal(t, "APPROVED", out.Status)
	require.NotNil(t, out.Terms)
	assert.Equal(t, 540000.0, out.Terms.ApprovedAmount)
	assert.Equal(t, 90.0, out.ResponseTimeMinutes)
	assert.NotNil(t, out.RespondedAt)
}

func TestHandler_Execute_OptionalPayload(t *testing.T) {
	updater := &MockUpdater{ApplyFunc: applyToRecord}

	for _, status := range []string{"UNDER_REVIEW", "REJECTED", "EXPIRED", "PENDING"} {
		t.Run(status, func(t *testing.T) {
			out, err := newTestHandler(t, updater).Execute(context.Background(), &Input{
				ApplicationID: "APP-1",
				LenderID:      "hdfc",
				Status:        status,
			})
			require.NoError(t, err)
			assert.Equal(t, status, out.Status)
		})
	}
}

func TestHandler_Execute_InvalidUpdates(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{
			name:  "unknown status",
			input: &Input{ApplicationID: "APP-1", LenderID: "hdfc", Status: "WITHDRAWN"},
		},
		{
			name:  "approved without payload",
			input: &Input{ApplicationID: "APP-1", LenderID: "hdfc", Status: "APPROVED"},
		},
		{
			name:  "payload is not an object",
			input: &Input{ApplicationID: "APP-1", LenderID: "hdfc", Status: "REJECTED", Payload: json.RawMessage(`"nope"`)},
		},
		{
			name:  "missing lender",
			input: &Input{ApplicationID: "APP-1", Status: "REJECTED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updater := &MockUpdater{
				ApplyFunc: func(context.Context, string, string, models.StatusUpdate) (*models.LenderApplication, error) {
					t.Fatal("update must not reach the orchestrator")
					return nil, nil
				},
			}
			_, err := newTestHandler(t, updater).Execute(context.Background(), tt.input)
			requireCode(t, err, errors.ErrCodeInvalidStatusUpdate)
		})
	}
}

func TestHandler_Execute_OrchestratorErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{
			name: "record not found",
			err:  fmt.Errorf("%w: record APP-1_hdfc", store.ErrNotFound),
			code: errors.ErrCodeLenderRecordNotFound,
		},
		{
			name: "strict transition",
			err:  &orchestrator.TransitionError{From: models.StatusApproved, To: models.StatusRejected},
			code: errors.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updater := &MockUpdater{
				ApplyFunc: func(context.Context, string, string, models.StatusUpdate) (*models.LenderApplication, error) {
					return nil, tt.err
				},
			}
			_, err := newTestHandler(t, updater).Execute(context.Background(), &Input{
				ApplicationID: "APP-1",
				LenderID:      "hdfc",
				Status:        "REJECTED",
				Payload:       json.RawMessage(`{"reason":"policy"}`),
			})
			requireCode(t, err, tt.code)
		})
	}
}

// internal/workers/lending/compute-lender-analytics/handler_test.go
package computelenderanalytics

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/models"
)

type MockAnalyticsSource struct {
	AnalyticsFunc func(ctx context.Context) ([]models.LenderAnalytics, error)
}

func (m *MockAnalyticsSource) Analytics(ctx context.Context) ([]models.LenderAnalytics, error) {
	return m.AnalyticsFunc(ctx)
}

// aggregated builds analytics through the orchestrator's own fold so the
// worker sees realistic derived fields.
func aggregated() []models.LenderAnalytics {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	responded := at.Add(2 * time.Hour)
	approved := func(lender string, rate, amount float64) models.LenderApplication {
		return models.LenderApplication{
			LenderID: lender, LenderName: lender, Status: models.StatusApproved, SubmittedAt: at,
			RespondedAt: &responded, ResponseTimeMinutes: 120,
			Terms: &models.LoanTerms{InterestRate: rate, ApprovedAmount: amount},
		}
	}
	recs := []models.LenderApplication{
		approved("hdfc", 10, 500000),
		approved("hdfc", 11, 300000),
		{LenderID: "hdfc", LenderName: "hdfc", Status: models.StatusRejected, SubmittedAt: at, RespondedAt: &responded, ResponseTimeMinutes: 60},
		approved("icici", 9.5, 400000),
		{LenderID: "axis", LenderName: "axis", Status: models.StatusSubmitted, SubmittedAt: at},
	}
	rates := map[string]float64{"hdfc": 1.5, "icici": 1.0}
	return orchestrator.Aggregate(recs, func(id string) float64 { return rates[id] })
}

func newTestHandler(t *testing.T) *Handler {
	h, err := NewHandler(nil, &MockAnalyticsSource{
		AnalyticsFunc: func(context.Context) ([]models.LenderAnalytics, error) { return aggregated(), nil },
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_AllLenders(t *testing.T) {
	out, err := newTestHandler(t).Execute(context.Background(), &Input{})
	require.NoError(t, err)

	require.Len(t, out.Lenders, 3)
	assert.Equal(t, "axis", out.Lenders[0].LenderID)

	hdfc := out.Lenders[1]
	assert.Equal(t, "hdfc", hdfc.LenderID)
	assert.InDelta(t, 2.0/3.0, hdfc.ApprovalRate, 1e-9)
	assert.InDelta(t, 10.5, hdfc.AverageInterestRate, 1e-9)
	assert.InDelta(t, 12000, hdfc.TotalCommission, 1e-6)

	assert.Equal(t, 5, out.Totals.Records)
	assert.Equal(t, 3, out.Totals.Approved)
	assert.Equal(t, 1, out.Totals.Rejected)
	assert.Equal(t, 1, out.Totals.Pending)
	assert.InDelta(t, 16000, out.Totals.TotalCommission, 1e-6)
	assert.InDelta(t, 0.6, out.Totals.ApprovalRate, 1e-9)
	assert.Equal(t, "icici", out.TopLenderID)
}

func TestHandler_Execute_Filtered(t *testing.T) {
	out, err := newTestHandler(t).Execute(context.Background(), &Input{LenderIDs: []string{"hdfc", "unknown"}})
	require.NoError(t, err)

	require.Len(t, out.Lenders, 1)
	assert.Equal(t, 3, out.Totals.Records)
	assert.Equal(t, "hdfc", out.TopLenderID)
}

func TestHandler_Execute_NoApprovalsHasNoTopLender(t *testing.T) {
	out, err := newTestHandler(t).Execute(context.Background(), &Input{LenderIDs: []string{"axis"}})
	require.NoError(t, err)
	assert.Empty(t, out.TopLenderID)
	assert.Zero(t, out.Totals.ApprovalRate)
}

func TestHandler_Execute_SourceError(t *testing.T) {
	h, err := NewHandler(nil, &MockAnalyticsSource{
		AnalyticsFunc: func(context.Context) ([]models.LenderAnalytics, error) {
			return nil, stderrors.New("list all records: LOADING")
		},
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{})
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStoreOperationFailed, stdErr.Code)
}

// internal/workers/lending/send-offer-notification/handler_test.go
package sendoffernotification

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/lending/notify"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockOfferSource struct {
	GetSubmissionFunc func(ctx context.Context, applicationID string) (*models.Submission, error)
	BestOffersFunc    func(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
}

func (m *MockOfferSource) GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error) {
	return m.GetSubmissionFunc(ctx, applicationID)
}

func (m *MockOfferSource) BestOffers(ctx context.Context, applicationID string) ([]models.LenderApplication, error) {
	return m.BestOffersFunc(ctx, applicationID)
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func testSource(priority models.Priority, offers ...models.LenderApplication) *MockOfferSource {
	return &MockOfferSource{
		GetSubmissionFunc: func(_ context.Context, appID string) (*models.Submission, error) {
			return &models.Submission{
				ApplicationID: appID,
				Priority:      priority,
				Customer: models.Customer{PersonalInfo: models.PersonalInfo{
					FullName: "Asha Rao",
					Email:    "asha@example.com",
					Phone:    "+919876543210",
				}},
			}, nil
		},
		BestOffersFunc: func(context.Context, string) ([]models.LenderApplication, error) {
			return offers, nil
		},
	}
}

func approvedOffer() models.LenderApplication {
	return models.LenderApplication{
		LenderID:   "hdfc",
		LenderName: "HDFC Bank",
		Status:     models.StatusApproved,
		Terms:      &models.LoanTerms{InterestRate: 9.75, ApprovedAmount: 540000, TenureMonths: 60, EMI: 11407},
	}
}

type sentMessages struct {
	emails []*ses.SendEmailInput
	sms    []*sns.PublishInput
}

func newNotifier(t *testing.T, sent *sentMessages, sesErr error) *notify.OfferNotifier {
	sesClient := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			if sesErr != nil {
				return nil, sesErr
			}
			sent.emails = append(sent.emails, params)
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsClient := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			sent.sms = append(sent.sms, params)
			return &sns.PublishOutput{}, nil
		},
	}
	return notify.NewOfferNotifier(notify.NotifierConfig{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "offers@lending.example.com",
	}, sesClient, snsClient, logger.NewTestLogger(t))
}

func newTestHandler(t *testing.T, source OfferSource, notifier Notifier) *Handler {
	h, err := NewHandler(nil, source, notifier, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name         string
		priority     models.Priority
		offers       []models.LenderApplication
		wantType     string
		wantChannels []string
		wantSMS      int
	}{
		{
			name:         "high priority with offers gets email and sms",
			priority:     models.PriorityHigh,
			offers:       []models.LenderApplication{approvedOffer()},
			wantType:     notify.TypeOffersReady,
			wantChannels: []string{"email", "sms"},
			wantSMS:      1,
		},
		{
			name:         "medium priority gets email only",
			priority:     models.PriorityMedium,
			offers:       []models.LenderApplication{approvedOffer()},
			wantType:     notify.TypeOffersReady,
			wantChannels: []string{"email"},
		},
		{
			name:         "no offers",
			priority:     models.PriorityLow,
			wantType:     notify.TypeNoOffers,
			wantChannels: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := &sentMessages{}
			h := newTestHandler(t, testSource(tt.priority, tt.offers...), newNotifier(t, sent, nil))

			out, err := h.Execute(context.Background(), &Input{ApplicationID: "APP-1"})
			require.NoError(t, err)

			assert.Equal(t, notify.StatusSent, out.Status)
			assert.Equal(t, tt.wantType, out.Type)
			assert.Equal(t, tt.wantChannels, out.Channels)
			assert.Equal(t, len(tt.offers), out.OfferCount)
			assert.NotEmpty(t, out.NotificationID)

			require.Len(t, sent.emails, 1)
			assert.Equal(t, []string{"asha@example.com"}, sent.emails[0].Destination.ToAddresses)
			assert.Len(t, sent.sms, tt.wantSMS)
		})
	}
}

func TestHandler_Execute_BestOfferInBody(t *testing.T) {
	sent := &sentMessages{}
	h := newTestHandler(t, testSource(models.PriorityMedium, approvedOffer()), newNotifier(t, sent, nil))

	_, err := h.Execute(context.Background(), &Input{ApplicationID: "APP-1"})
	require.NoError(t, err)
	require.Len(t, sent.emails, 1)
	assert.Contains(t, *sent.emails[0].Message.Body.Text.Data, "HDFC Bank at 9.75% for 540000 (EMI 11407)")
}

func TestHandler_Execute_SendFailureIsRetryable(t *testing.T) {
	sent := &sentMessages{}
	h := newTestHandler(t, testSource(models.PriorityMedium, approvedOffer()),
		newNotifier(t, sent, stderrors.New("Throttling: Maximum sending rate exceeded")))

	_, err := h.Execute(context.Background(), &Input{ApplicationID: "APP-1"})
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, notify.TypeOffersReady)
}

func TestHandler_Execute_SMSFailureAfterEmailCompletesJob(t *testing.T) {
	var emails int
	sesClient := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			emails++
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsClient := &MockSNSService{
		PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, stderrors.New("OptedOut: phone number opted out")
		},
	}
	notifier := notify.NewOfferNotifier(notify.NotifierConfig{EmailEnabled: true, SMSEnabled: true},
		sesClient, snsClient, logger.NewTestLogger(t))
	h := newTestHandler(t, testSource(models.PriorityHigh, approvedOffer()), notifier)

	out, err := h.Execute(context.Background(), &Input{ApplicationID: "APP-1"})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusPartial, out.Status)
	assert.Equal(t, []string{"email"}, out.Channels)
	assert.Equal(t, []string{"sms"}, out.FailedChannels)
	assert.Equal(t, 1, emails)
}

func TestHandler_Execute_UnknownApplication(t *testing.T) {
	source := &MockOfferSource{
		GetSubmissionFunc: func(_ context.Context, appID string) (*models.Submission, error) {
			return nil, fmt.Errorf("%w: submission %s", store.ErrNotFound, appID)
		},
	}
	notifier := newNotifier(t, &sentMessages{}, nil)

	_, err := newTestHandler(t, source, notifier).Execute(context.Background(), &Input{ApplicationID: "APP-404"})
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSubmissionNotFound, stdErr.Code)
}

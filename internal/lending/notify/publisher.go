// internal/lending/notify/publisher.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"lending-workers/internal/models"
)

const EventTypeLenderDecision = "lender.decision"

// DecisionEvent is the message body published for every recorded lender outcome.
type DecisionEvent struct {
	EventID         string               `json:"eventId"`
	EventType       string               `json:"eventType"`
	ApplicationID   string               `json:"applicationId"`
	LenderID        string               `json:"lenderId"`
	LenderName      string               `json:"lenderName"`
	Status          models.LenderStatus  `json:"status"`
	Terms           *models.LoanTerms    `json:"terms,omitempty"`
	CounterOffer    *models.CounterOffer `json:"counterOffer,omitempty"`
	RejectionReason string               `json:"rejectionReason,omitempty"`
	RetryCount      int                  `json:"retryCount"`
	OccurredAt      time.Time            `json:"occurredAt"`
}

// SNSPublisher fans decision events out to an SNS topic.
type SNSPublisher struct {
	client   SNSService
	topicARN string
	now      func() time.Time
}

func NewSNSPublisher(client SNSService, topicARN string) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicARN: topicARN,
		now:      time.Now,
	}
}

func (p *SNSPublisher) PublishDecision(ctx context.Context, rec *models.LenderApplication) error {
	if rec == nil {
		return errors.New("publish decision: nil record")
	}

	event := DecisionEvent{
		EventID:         uuid.New().String(),
		EventType:       EventTypeLenderDecision,
		ApplicationID:   rec.ApplicationID,
		LenderID:        rec.LenderID,
		LenderName:      rec.LenderName,
		Status:          rec.Status,
		Terms:           rec.Terms,
		CounterOffer:    rec.CounterOffer,
		RejectionReason: rec.RejectionReason,
		RetryCount:      rec.RetryCount,
		OccurredAt:      p.now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": stringAttribute(EventTypeLenderDecision),
			"status":    stringAttribute(string(rec.Status)),
			"lenderId":  stringAttribute(rec.LenderID),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: publish decision %s: %w", ErrNotificationSendFailed, rec.ID, err)
	}
	return nil
}

func stringAttribute(v string) snstypes.MessageAttributeValue {
	return snstypes.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}

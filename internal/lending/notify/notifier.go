// internal/lending/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"lending-workers/internal/common/logger"
	"lending-workers/internal/models"
)

const (
	TypeOffersReady = "offers_ready"
	TypeNoOffers    = "no_offers"
)

const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type NotifierConfig struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

type Template struct {
	Subject string
	Body    string
}

type Recipient struct {
	Name  string
	Email string
	Phone string
}

// OfferNotification tells a customer how their application fared across lenders.
// Offers are expected best-first.
type OfferNotification struct {
	ApplicationID string
	Recipient     Recipient
	Priority      models.Priority
	Offers        []models.LenderApplication
}

type Result struct {
	NotificationID string   `json:"notificationId"`
	Type           string   `json:"notificationType"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels,omitempty"`
	FailedChannels []string `json:"failedChannels,omitempty"`
	SentAt         string   `json:"sentAt"`
}

// OfferNotifier emails the customer and, for HIGH priority applications, sends
// an SMS as well.
type OfferNotifier struct {
	config    NotifierConfig
	ses       SESService
	sns       SNSService
	logger    logger.Logger
	templates map[string]Template
	now       func() time.Time
}

func NewOfferNotifier(config NotifierConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *OfferNotifier {
	return &OfferNotifier{
		config:    config,
		ses:       sesClient,
		sns:       snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "offer-notifier"}),
		templates: defaultTemplates(),
		now:       time.Now,
	}
}

func (n *OfferNotifier) Notify(ctx context.Context, msg OfferNotification) (*Result, error) {
	notificationType := TypeNoOffers
	if len(msg.Offers) > 0 {
		notificationType = TypeOffersReady
	}
	tmpl := n.templates[notificationType]

	data := templateData(msg)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	result := &Result{
		NotificationID: uuid.New().String(),
		Type:           notificationType,
		Status:         StatusDisabled,
		SentAt:         n.now().UTC().Format(time.RFC3339),
	}

	if n.config.EmailEnabled && msg.Recipient.Email != "" {
		if err := n.sendEmail(ctx, msg.Recipient.Email, subject, body); err != nil {
			n.logger.WithError(err).Error("email send failed", map[string]interface{}{
				"applicationId": msg.ApplicationID,
			})
			result.Status = StatusFailed
			return result, fmt.Errorf("%w: email: %w", ErrNotificationSendFailed, err)
		}
		result.Channels = append(result.Channels, "email")
	}

	if n.config.SMSEnabled && msg.Recipient.Phone != "" && msg.Priority == models.PriorityHigh {
		if err := n.sendSMS(ctx, msg.Recipient.Phone, body); err != nil {
			fields := map[string]interface{}{"applicationId": msg.ApplicationID}
			if len(result.Channels) == 0 {
				n.logger.WithError(err).Error("SMS send failed", fields)
				result.Status = StatusFailed
				return result, fmt.Errorf("%w: sms: %w", ErrNotificationSendFailed, err)
			}
			// a retry would repeat the delivered channels
			n.logger.WithError(err).Warn("SMS send failed after email delivery", fields)
			result.FailedChannels = append(result.FailedChannels, "sms")
		} else {
			result.Channels = append(result.Channels, "sms")
		}
	}

	switch {
	case len(result.FailedChannels) > 0:
		result.Status = StatusPartial
	case len(result.Channels) > 0:
		result.Status = StatusSent
	}
	n.logger.Info("offer notification processed", map[string]interface{}{
		"applicationId":  msg.ApplicationID,
		"notificationId": result.NotificationID,
		"status":         result.Status,
		"offers":         len(msg.Offers),
	})
	return result, nil
}

func (n *OfferNotifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

func (n *OfferNotifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func templateData(msg OfferNotification) map[string]interface{} {
	data := map[string]interface{}{
		"customerName":  msg.Recipient.Name,
		"applicationId": msg.ApplicationID,
		"priority":      string(msg.Priority),
		"offerCount":    len(msg.Offers),
	}
	if len(msg.Offers) == 0 {
		return data
	}
	best := msg.Offers[0]
	data["bestLender"] = best.LenderName
	if best.Terms != nil {
		data["bestRate"] = fmt.Sprintf("%.2f", best.Terms.InterestRate)
		data["bestAmount"] = fmt.Sprintf("%.0f", best.Terms.ApprovedAmount)
		data["bestEmi"] = fmt.Sprintf("%.0f", best.Terms.EMI)
	}
	return data
}

func defaultTemplates() map[string]Template {
	return map[string]Template{
		TypeOffersReady: {
			Subject: "Your loan offers are ready",
			Body: "Hi {{customerName}}, application {{applicationId}} received {{offerCount}} offer(s). " +
				"Best: {{bestLender}} at {{bestRate}}% for {{bestAmount}} (EMI {{bestEmi}}).",
		},
		TypeNoOffers: {
			Subject: "Update on your loan application",
			Body:    "Hi {{customerName}}, application {{applicationId}} has no approved offers yet. We will keep you posted.",
		},
	}
}

// renderTemplate replaces {{key}} placeholders and drops any left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		switch typed := v.(type) {
		case string:
			value = typed
		case nil:
		default:
			value = fmt.Sprintf("%v", typed)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

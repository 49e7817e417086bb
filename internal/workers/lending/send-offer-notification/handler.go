// internal/workers/lending/send-offer-notification/handler.go
package sendoffernotification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/lending/notify"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "send-offer-notification"
)

type OfferSource interface {
	GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error)
	BestOffers(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg notify.OfferNotification) (*notify.Result, error)
}

type Handler struct {
	config   *Config
	offers   OfferSource
	notifier Notifier
	reporter *jobs.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, offers OfferSource, notifier Notifier, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		offers:   offers,
		notifier: notifier,
		reporter: jobs.NewReporter(TaskType, log),
		logger:   log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	started := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := jobs.Decode(job, &input); err != nil {
		h.reporter.Fail(client, job, started, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.reporter.Fail(client, job, started, err)
		return
	}

	h.reporter.Complete(client, job, started, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	appID := strings.TrimSpace(input.ApplicationID)
	if appID == "" {
		return nil, errors.NewApplicationValidationFailedError("applicationId is required")
	}

	sub, err := h.offers.GetSubmission(ctx, appID)
	if err != nil {
		return nil, jobs.Translate(err, appID, "")
	}
	offers, err := h.offers.BestOffers(ctx, appID)
	if err != nil {
		return nil, jobs.Translate(err, appID, "")
	}

	personal := sub.Customer.PersonalInfo
	result, err := h.notifier.Notify(ctx, notify.OfferNotification{
		ApplicationID: appID,
		Recipient: notify.Recipient{
			Name:  personal.FullName,
			Email: personal.Email,
			Phone: personal.Phone,
		},
		Priority: sub.Priority,
		Offers:   offers,
	})
	if err != nil {
		notificationType := notify.TypeNoOffers
		if len(offers) > 0 {
			notificationType = notify.TypeOffersReady
		}
		return nil, errors.NewNotificationSendFailedError(notificationType, err).
			WithMetadata("applicationId", appID)
	}

	channels := result.Channels
	if channels == nil {
		channels = []string{}
	}
	return &Output{
		NotificationID: result.NotificationID,
		Type:           result.Type,
		Status:         result.Status,
		Channels:       channels,
		FailedChannels: result.FailedChannels,
		OfferCount:     len(offers),
		SentAt:         result.SentAt,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

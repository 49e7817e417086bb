// internal/workers/lending/get-application-status/handler.go
package getapplicationstatus

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "get-application-status"
)

type StatusReader interface {
	GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error)
	GetStatus(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
	BestOffers(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
	InFlight(ctx context.Context, applicationID string) (bool, error)
}

type Handler struct {
	config   *Config
	reader   StatusReader
	reporter *jobs.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, reader StatusReader, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		reader:   reader,
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

	out := &Output{
		ApplicationID: appID,
		Lenders:       []LenderStatus{},
		Offers:        []Offer{},
	}

	sub, err := h.reader.GetSubmission(ctx, appID)
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		h.logger.Info("application not found", map[string]interface{}{"applicationId": appID})
		return out, nil
	case err != nil:
		return nil, jobs.Translate(err, appID, "")
	}
	out.Found = true
	out.Priority = sub.Priority

	if out.InFlight, err = h.reader.InFlight(ctx, appID); err != nil {
		return nil, jobs.Translate(err, appID, "")
	}

	recs, err := h.reader.GetStatus(ctx, appID)
	if err != nil {
		return nil, jobs.Translate(err, appID, "")
	}
	for _, rec := range recs {
		out.Lenders = append(out.Lenders, LenderStatus{
			LenderID:            rec.LenderID,
			LenderName:          rec.LenderName,
			Status:              string(rec.Status),
			Terms:               rec.Terms,
			RejectionReason:     rec.RejectionReason,
			RequiredDocuments:   rec.RequiredDocuments,
			RetryCount:          rec.RetryCount,
			ResponseTimeMinutes: rec.ResponseTimeMinutes,
		})
		out.Summary.add(rec)
	}
	out.Settled = !out.InFlight && out.Summary.Pending == 0

	offers, err := h.reader.BestOffers(ctx, appID)
	if err != nil {
		return nil, jobs.Translate(err, appID, "")
	}
	for _, rec := range offers {
		out.Offers = append(out.Offers, Offer{
			LenderID:       rec.LenderID,
			LenderName:     rec.LenderName,
			InterestRate:   rec.Terms.InterestRate,
			ApprovedAmount: rec.Terms.ApprovedAmount,
			TenureMonths:   rec.Terms.TenureMonths,
			EMI:            rec.Terms.EMI,
		})
	}
	if len(out.Offers) > 0 {
		best := out.Offers[0]
		out.BestOffer = &best
	}

	return out, nil
}

func (s *Summary) add(rec models.LenderApplication) {
	s.Total++
	switch {
	case rec.Status == models.StatusApproved:
		s.Approved++
	case rec.Status == models.StatusRejected:
		s.Rejected++
	case rec.Status == models.StatusFailed:
		s.Failed++
	case rec.Status.Pending():
		s.Pending++
	}
	if rec.RespondedAt != nil {
		s.Responded++
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

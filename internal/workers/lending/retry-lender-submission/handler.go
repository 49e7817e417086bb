// internal/workers/lending/retry-lender-submission/handler.go
package retrylendersubmission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "retry-lender-submission"
)

type Retrier interface {
	Retry(ctx context.Context, applicationID, lenderID string) (bool, error)
	GetStatus(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
}

type Handler struct {
	config   *Config
	retrier  Retrier
	reporter *jobs.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, retrier Retrier, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		retrier:  retrier,
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

// execute reports a missing or non-FAILED record as retried=false rather than
// failing the job.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	appID := strings.TrimSpace(input.ApplicationID)
	lenderID := strings.TrimSpace(input.LenderID)
	if appID == "" || lenderID == "" {
		return nil, errors.NewApplicationValidationFailedError("applicationId and lenderId are required")
	}

	retried, err := h.retrier.Retry(ctx, appID, lenderID)
	if err != nil {
		return nil, jobs.Translate(err, appID, lenderID)
	}

	out := &Output{
		Retried:       retried,
		ApplicationID: appID,
		LenderID:      lenderID,
	}

	recs, err := h.retrier.GetStatus(ctx, appID)
	if err != nil {
		return nil, jobs.Translate(err, appID, lenderID)
	}
	for _, rec := range recs {
		if rec.LenderID == lenderID {
			out.Status = string(rec.Status)
			out.RetryCount = rec.RetryCount
			break
		}
	}

	switch {
	case retried:
		out.Message = fmt.Sprintf("Resubmitted to %s, now %s", lenderID, out.Status)
	case out.Status == "":
		out.Message = fmt.Sprintf("No submission to %s found for %s", lenderID, appID)
	default:
		out.Message = fmt.Sprintf("Only FAILED submissions can be retried; %s is %s", lenderID, out.Status)
	}

	h.logger.Info("retry handled", map[string]interface{}{
		"applicationId": appID,
		"lenderId":      lenderID,
		"retried":       retried,
		"status":        out.Status,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

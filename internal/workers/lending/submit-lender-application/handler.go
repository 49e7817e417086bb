// internal/workers/lending/submit-lender-application/handler.go
package submitlenderapplication

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/validation"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "submit-lender-application"
)

// Submitter is the orchestrator operation this worker drives.
type Submitter interface {
	Submit(ctx context.Context, req orchestrator.SubmitRequest) (*orchestrator.SubmitResult, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	schema    *validation.Schema
	reporter  *jobs.Reporter
	logger    logger.Logger
}

func NewHandler(config *Config, submitter Submitter, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	schema, err := validation.Load(validation.SchemaSubmitApplication)
	if err != nil {
		return nil, err
	}

	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		submitter: submitter,
		schema:    schema,
		reporter:  jobs.NewReporter(TaskType, log),
		logger:    log,
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
	result, err := h.schema.ValidateValue(input)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid {
		h.logger.Warn("application rejected by schema", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"errors":        result.GetErrorMessages(),
		})
		return nil, errors.NewApplicationValidationFailedError(result.Error()).
			WithMetadata("applicationId", input.ApplicationID)
	}

	res, err := h.submitter.Submit(ctx, input.request())
	if err != nil {
		return nil, jobs.Translate(err, input.ApplicationID, "")
	}

	failed := res.FailedLenderIDs
	if failed == nil {
		failed = []string{}
	}
	return &Output{
		Success:            res.Success,
		ApplicationID:      res.ApplicationID,
		Priority:           res.Priority,
		SubmittedLenderIDs: res.SubmittedLenderIDs,
		FailedLenderIDs:    failed,
		SubmittedCount:     len(res.SubmittedLenderIDs),
		FailedCount:        len(failed),
		Message:            res.Message,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

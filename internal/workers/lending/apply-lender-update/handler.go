// internal/workers/lending/apply-lender-update/handler.go
package applylenderupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/validation"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "apply-lender-update"
)

type Updater interface {
	ApplyExternalUpdate(ctx context.Context, applicationID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error)
}

type Handler struct {
	config   *Config
	updater  Updater
	schema   *validation.Schema
	reporter *jobs.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, updater Updater, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	schema, err := validation.Load(validation.SchemaStatusUpdate)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		updater:  updater,
		schema:   schema,
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
	lenderID := strings.TrimSpace(input.LenderID)
	if appID == "" || lenderID == "" {
		return nil, errors.NewInvalidStatusUpdateError("applicationId and lenderId are required")
	}

	update, err := h.decode(input)
	if err != nil {
		return nil, err
	}

	rec, err := h.updater.ApplyExternalUpdate(ctx, appID, lenderID, update)
	if err != nil {
		return nil, jobs.Translate(err, appID, lenderID)
	}

	return &Output{
		Updated:             true,
		ApplicationID:       rec.ApplicationID,
		LenderID:            rec.LenderID,
		Status:              string(rec.Status),
		Terms:               rec.Terms,
		RespondedAt:         rec.RespondedAt,
		ResponseTimeMinutes: rec.ResponseTimeMinutes,
	}, nil
}

// decode checks the envelope against the status-update schema, then builds the
// typed variant for the status.
func (h *Handler) decode(input *Input) (models.StatusUpdate, error) {
	envelope := map[string]interface{}{"status": input.Status}
	if len(input.Payload) > 0 {
		envelope["payload"] = input.Payload
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.NewInvalidStatusUpdateError(err.Error())
	}

	result, err := h.schema.ValidateJSON(raw)
	if err != nil {
		return nil, errors.NewInvalidStatusUpdateError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidStatusUpdateError(result.Error())
	}

	update, err := models.DecodeStatusUpdate(models.LenderStatus(input.Status), input.Payload)
	if err != nil {
		return nil, errors.NewInvalidStatusUpdateError(err.Error())
	}
	return update, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// internal/workers/lending/jobs/jobs.go
package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/metrics"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/lending/store"
)

// Reporter completes or fails lending jobs and records the job metrics.
type Reporter struct {
	taskType string
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewReporter(taskType string, log logger.Logger) *Reporter {
	return &Reporter{
		taskType: taskType,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
	}
}

// Decode unmarshals the job variables into dst. A malformed payload is a
// validation failure and is never retried.
func Decode(job entities.Job, dst interface{}) error {
	if err := json.Unmarshal([]byte(job.Variables), dst); err != nil {
		return errors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

func (r *Reporter) Complete(client worker.JobClient, job entities.Job, started time.Time, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		r.Fail(client, job, started, errors.NewInternalError(err))
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		r.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
	metrics.ObserveJob(r.taskType, started, "")
	r.logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"durationMs": time.Since(started).Milliseconds(),
	})
}

func (r *Reporter) Fail(client worker.JobClient, job entities.Job, started time.Time, err error) {
	stdErr := errors.Normalize(err)
	metrics.ObserveJob(r.taskType, started, string(stdErr.Code))
	r.errors.HandleJobError(context.Background(), client, job, stdErr)
}

// Translate maps orchestrator and store failures onto the job error codes.
// StandardErrors pass through untouched.
func Translate(err error, applicationID, lenderID string) *errors.StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := errors.AsStandardError(err); ok {
		return stdErr
	}

	var transition *orchestrator.TransitionError
	switch {
	case stderrors.Is(err, orchestrator.ErrDuplicateSubmission):
		return errors.NewDuplicateSubmissionError(applicationID)
	case stderrors.Is(err, orchestrator.ErrNoLenders):
		return errors.NewNoLendersResolvedError(applicationID)
	case stderrors.Is(err, orchestrator.ErrInvalidRequest):
		return errors.NewApplicationValidationFailedError(err.Error())
	case stderrors.As(err, &transition):
		return errors.NewInvalidTransitionError(string(transition.From), string(transition.To))
	case stderrors.Is(err, store.ErrNotFound):
		if lenderID != "" {
			return errors.NewLenderRecordNotFoundError(applicationID, lenderID)
		}
		return errors.NewSubmissionNotFoundError(applicationID)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return errors.NewStoreOperationFailedError("timeout", err)
	default:
		return errors.NewStoreOperationFailedError("orchestrate", err)
	}
}

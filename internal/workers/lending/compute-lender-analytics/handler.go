// internal/workers/lending/compute-lender-analytics/handler.go
package computelenderanalytics

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lending-workers/internal/common/logger"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const (
	TaskType = "compute-lender-analytics"
)

type AnalyticsSource interface {
	Analytics(ctx context.Context) ([]models.LenderAnalytics, error)
}

type Handler struct {
	config   *Config
	source   AnalyticsSource
	reporter *jobs.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, source AnalyticsSource, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		source:   source,
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
	all, err := h.source.Analytics(ctx)
	if err != nil {
		return nil, jobs.Translate(err, "", "")
	}

	wanted := make(map[string]bool, len(input.LenderIDs))
	for _, id := range input.LenderIDs {
		wanted[id] = true
	}

	out := &Output{Lenders: make([]models.LenderAnalytics, 0, len(all))}
	var top *models.LenderAnalytics
	for i := range all {
		a := all[i]
		if len(wanted) > 0 && !wanted[a.LenderID] {
			continue
		}
		out.Lenders = append(out.Lenders, a)

		out.Totals.Records += a.Total
		out.Totals.Approved += a.Approved
		out.Totals.Rejected += a.Rejected
		out.Totals.Pending += a.Pending
		out.Totals.TotalCommission += a.TotalCommission

		if a.Approved > 0 && (top == nil || better(&a, top)) {
			top = &all[i]
		}
	}
	if out.Totals.Records > 0 {
		out.Totals.ApprovalRate = float64(out.Totals.Approved) / float64(out.Totals.Records)
	}
	if top != nil {
		out.TopLenderID = top.LenderID
	}

	h.logger.Info("lender analytics computed", map[string]interface{}{
		"lenders": len(out.Lenders),
		"records": out.Totals.Records,
	})
	return out, nil
}

func better(a, b *models.LenderAnalytics) bool {
	if a.ApprovalRate != b.ApprovalRate {
		return a.ApprovalRate > b.ApprovalRate
	}
	return a.AverageInterestRate < b.AverageInterestRate
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

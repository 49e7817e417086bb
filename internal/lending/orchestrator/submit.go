// internal/lending/orchestrator/submit.go
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"lending-workers/internal/common/metrics"
	"lending-workers/internal/lending/scorer"
	"lending-workers/internal/lending/simulator"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

type SubmitRequest struct {
	ApplicationID string                  `json:"applicationId"`
	Customer      models.Customer         `json:"customer"`
	Asset         models.Asset            `json:"asset"`
	Financial     models.FinancialRequest `json:"financial"`
	Documents     []models.Document       `json:"documents,omitempty"`
	// LenderIDs is the explicit target list. Empty lets the scorer choose.
	LenderIDs []string `json:"lenderIds,omitempty"`
}

type SubmitResult struct {
	Success            bool            `json:"success"`
	ApplicationID      string          `json:"applicationId"`
	Priority           models.Priority `json:"priority"`
	SubmittedLenderIDs []string        `json:"submittedLenderIds"`
	FailedLenderIDs    []string        `json:"failedLenderIds,omitempty"`
	Message            string          `json:"message"`
}

// Submit fans the application out to every resolved lender and waits for all
// of them to settle. It fails outright only for a duplicate in-flight
// submission or when no lender could be resolved.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	applicationID := strings.TrimSpace(req.ApplicationID)
	if applicationID == "" {
		return nil, fmt.Errorf("%w: application id is required", ErrInvalidRequest)
	}

	ctx, span := o.telemetry.StartSpan(ctx, "lending.submit", attribute.String("applicationId", applicationID))
	defer span.End()

	release, ok, err := o.guard.TryAcquire(ctx, applicationID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("acquire in-flight guard: %w", err)
	}
	if !ok {
		metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		span.SetStatus(codes.Error, "duplicate submission")
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubmission, applicationID)
	}
	defer release()

	sub := &models.Submission{
		ApplicationID: applicationID,
		Customer:      req.Customer,
		Asset:         req.Asset,
		Financial:     req.Financial,
		Documents:     append([]models.Document(nil), req.Documents...),
		SubmittedAt:   o.timestamp(),
	}

	lenderIDs := o.resolveLenders(sub, req.LenderIDs)
	if len(lenderIDs) == 0 {
		metrics.SubmissionsTotal.WithLabelValues("no_lenders").Inc()
		return nil, fmt.Errorf("%w: %s", ErrNoLenders, applicationID)
	}
	sub.SelectedLenders = lenderIDs
	sub.Priority = ComputePriority(sub)

	if err := o.store.SaveSubmission(ctx, sub); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("save submission %s: %w", applicationID, err)
	}

	log := o.logger.WithFields(map[string]interface{}{"applicationId": applicationID})
	log.Info("fanning out submission", map[string]interface{}{
		"lenders":  lenderIDs,
		"priority": sub.Priority,
	})

	started := time.Now()
	outcomes := o.fanOut(ctx, sub, lenderIDs)

	result := &SubmitResult{
		ApplicationID:      applicationID,
		Priority:           sub.Priority,
		SubmittedLenderIDs: []string{},
	}
	for i, lenderID := range lenderIDs {
		if outcomes[i] {
			result.SubmittedLenderIDs = append(result.SubmittedLenderIDs, lenderID)
		} else {
			result.FailedLenderIDs = append(result.FailedLenderIDs, lenderID)
		}
	}
	result.Success = len(result.SubmittedLenderIDs) > 0

	label := "success"
	switch {
	case !result.Success:
		label = "failed"
		result.Message = fmt.Sprintf("Submission failed for all %d lenders", len(lenderIDs))
	case len(result.FailedLenderIDs) > 0:
		label = "partial"
		result.Message = fmt.Sprintf("Submitted to %d of %d lenders", len(result.SubmittedLenderIDs), len(lenderIDs))
	default:
		result.Message = fmt.Sprintf("Submitted to %d lenders", len(lenderIDs))
	}
	metrics.SubmissionsTotal.WithLabelValues(label).Inc()
	o.telemetry.RecordFanout(ctx, time.Since(started), len(lenderIDs), label)
	span.SetAttributes(attribute.Int("lenders", len(lenderIDs)), attribute.String("result", label))

	log.Info("submission settled", map[string]interface{}{
		"submitted":  len(result.SubmittedLenderIDs),
		"failed":     len(result.FailedLenderIDs),
		"durationMs": time.Since(started).Milliseconds(),
	})
	return result, nil
}

// resolveLenders de-duplicates an explicit list, keeping order, or asks the
// scorer for the best active lenders.
func (o *Orchestrator) resolveLenders(sub *models.Submission, explicit []string) []string {
	seen := make(map[string]struct{}, len(explicit))
	var ids []string
	for _, id := range explicit {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) > 0 || o.lenders == nil {
		return ids
	}

	limit := o.config.MaxSelectedLenders
	if limit <= 0 {
		limit = scorer.DefaultLimit
	}
	return scorer.Select(o.lenders.ListActive(), scorer.ApplicantFromSubmission(sub), limit)
}

// fanOut runs one task per lender. Tasks never return an error so a failing
// lender cannot cancel its siblings. outcomes[i] is true when lender i
// produced a decision.
func (o *Orchestrator) fanOut(ctx context.Context, sub *models.Submission, lenderIDs []string) []bool {
	taskCtx := context.WithoutCancel(ctx)
	outcomes := make([]bool, len(lenderIDs))

	var g errgroup.Group
	if o.config.MaxParallel > 0 {
		g.SetLimit(o.config.MaxParallel)
	}

	for i, lenderID := range lenderIDs {
		g.Go(func() error {
			outcomes[i] = o.submitToLender(taskCtx, sub, lenderID)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// submitToLender creates the SUBMITTED record and runs the lender call.
func (o *Orchestrator) submitToLender(ctx context.Context, sub *models.Submission, lenderID string) bool {
	rec := &models.LenderApplication{
		ID:            models.LenderApplicationID(sub.ApplicationID, lenderID),
		ApplicationID: sub.ApplicationID,
		LenderID:      lenderID,
		LenderName:    o.lenderName(lenderID),
		Status:        models.StatusSubmitted,
		SubmittedAt:   o.timestamp(),
	}
	if err := o.store.PutRecord(ctx, rec); err != nil {
		o.logger.WithError(err).Error("failed to create lender record", map[string]interface{}{
			"applicationId": sub.ApplicationID,
			"lenderId":      lenderID,
		})
		metrics.LenderDecisionsTotal.WithLabelValues(lenderID, "STORE_ERROR").Inc()
		return false
	}
	return o.callLender(ctx, sub, lenderID)
}

// callLender asks the decider for a decision and writes the outcome onto the
// existing record. A returned error or a panic marks the record FAILED.
func (o *Orchestrator) callLender(ctx context.Context, sub *models.Submission, lenderID string) (decided bool) {
	ctx, span := o.telemetry.StartSpan(ctx, "lending.lender_call",
		attribute.String("applicationId", sub.ApplicationID),
		attribute.String("lenderId", lenderID))
	defer span.End()

	metrics.FanoutInflight.Inc()
	defer metrics.FanoutInflight.Dec()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("lender task panicked: %v", r)
			span.RecordError(err)
			o.markFailed(ctx, sub.ApplicationID, lenderID, err, started)
			decided = false
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.config.LenderTimeout)
	defer cancel()

	if o.decider == nil {
		panic("no lender decider configured")
	}
	decision, err := o.decider.Decide(callCtx, lenderID, simulator.RequestFromSubmission(sub))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.markFailed(ctx, sub.ApplicationID, lenderID, err, started)
		return false
	}

	raw := o.rawResponse(sub.ApplicationID, lenderID, decision)
	rec, err := o.store.UpdateRecord(ctx, sub.ApplicationID, lenderID, func(rec *models.LenderApplication) error {
		models.ApplyStatusUpdate(rec, decision.Update())
		o.stampResponse(rec, decision)
		rec.RawResponse = raw
		return nil
	})
	if err != nil {
		o.logger.WithError(err).Error("failed to record lender decision", map[string]interface{}{
			"applicationId": sub.ApplicationID,
			"lenderId":      lenderID,
			"status":        decision.Status,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.markFailed(ctx, sub.ApplicationID, lenderID, fmt.Errorf("record lender decision: %w", err), started)
		return false
	}

	span.SetAttributes(attribute.String("status", string(rec.Status)))
	metrics.ObserveLenderCall(lenderID, string(rec.Status), time.Since(started))
	o.telemetry.RecordDecision(ctx, lenderID, string(rec.Status))
	o.logger.Info("lender decision recorded", map[string]interface{}{
		"applicationId": sub.ApplicationID,
		"lenderId":      lenderID,
		"status":        rec.Status,
		"durationMs":    time.Since(started).Milliseconds(),
	})
	o.emit(ctx, rec)
	return true
}

func (o *Orchestrator) stampResponse(rec *models.LenderApplication, decision *simulator.Decision) {
	respondedAt := decision.DecidedAt
	if respondedAt.IsZero() {
		respondedAt = o.timestamp()
	}
	rec.MarkResponded(respondedAt)
	if decision.ResponseMinutes > 0 {
		rec.ResponseTimeMinutes = decision.ResponseMinutes
	}
}

// markFailed moves the record to FAILED. When the atomic update cannot be
// applied the FAILED record is written directly so the lender stays
// retryable. A record dropped by a newer submission is left alone.
func (o *Orchestrator) markFailed(ctx context.Context, applicationID, lenderID string, cause error, started time.Time) {
	reason := cause.Error()
	raw := o.rawResponse(applicationID, lenderID, map[string]string{"error": reason})
	fields := map[string]interface{}{
		"applicationId": applicationID,
		"lenderId":      lenderID,
		"reason":        reason,
	}
	metrics.ObserveLenderCall(lenderID, string(models.StatusFailed), time.Since(started))

	rec, err := o.store.UpdateRecord(ctx, applicationID, lenderID, func(rec *models.LenderApplication) error {
		models.ApplyStatusUpdate(rec, models.FailedUpdate{Reason: reason})
		rec.RawResponse = raw
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		o.logger.WithError(err).Warn("lender record gone, FAILED status not written", fields)
		return
	}
	if err != nil {
		o.logger.WithError(err).Warn("atomic FAILED update failed, overwriting record", fields)
		rec, err = o.overwriteFailed(ctx, applicationID, lenderID, reason, raw)
		if err != nil {
			o.logger.WithError(err).Error("failed to mark lender record FAILED", fields)
			return
		}
	}
	o.logger.Warn("lender submission failed", fields)
	o.emit(ctx, rec)
}

func (o *Orchestrator) overwriteFailed(ctx context.Context, applicationID, lenderID, reason string, raw json.RawMessage) (*models.LenderApplication, error) {
	rec, err := o.store.GetRecord(ctx, applicationID, lenderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		rec = &models.LenderApplication{
			ID:            models.LenderApplicationID(applicationID, lenderID),
			ApplicationID: applicationID,
			LenderID:      lenderID,
			LenderName:    o.lenderName(lenderID),
			SubmittedAt:   o.timestamp(),
		}
	}
	models.ApplyStatusUpdate(rec, models.FailedUpdate{Reason: reason})
	rec.RawResponse = raw
	rec.UpdatedAt = o.timestamp()
	if err := o.store.PutRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// rawResponse encodes v for the audit trail. An encoding failure is logged
// and recorded in place of the payload.
func (o *Orchestrator) rawResponse(applicationID, lenderID string, v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err == nil {
		return raw
	}
	o.logger.WithError(err).Warn("failed to marshal raw lender response", map[string]interface{}{
		"applicationId": applicationID,
		"lenderId":      lenderID,
	})
	raw, _ = json.Marshal(map[string]string{"marshalError": err.Error()})
	return raw
}

func (o *Orchestrator) lenderName(lenderID string) string {
	if o.lenders == nil {
		return lenderID
	}
	if l, ok := o.lenders.Get(lenderID); ok {
		return l.Name
	}
	return lenderID
}

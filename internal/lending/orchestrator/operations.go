// internal/lending/orchestrator/operations.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"lending-workers/internal/common/metrics"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

var errNotRetryable = errors.New("record is not FAILED")

// Retry resubmits a FAILED lender record using the stored submission. It
// returns false without side effects when the submission or record is missing
// or the record is not FAILED.
func (o *Orchestrator) Retry(ctx context.Context, applicationID, lenderID string) (bool, error) {
	log := o.logger.WithFields(map[string]interface{}{
		"applicationId": applicationID,
		"lenderId":      lenderID,
	})

	sub, err := o.store.GetSubmission(ctx, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("retry ignored: submission not found", nil)
		metrics.RetriesTotal.WithLabelValues(lenderID, "rejected").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load submission %s: %w", applicationID, err)
	}

	rec, err := o.store.UpdateRecord(ctx, applicationID, lenderID, func(rec *models.LenderApplication) error {
		if rec.Status != models.StatusFailed {
			return fmt.Errorf("%w: %s is %s", errNotRetryable, rec.ID, rec.Status)
		}
		now := o.timestamp()
		rec.RetryCount++
		rec.LastRetryAt = &now
		rec.ClearOutcome()
		rec.Status = models.StatusSubmitted
		rec.SubmittedAt = now
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errNotRetryable):
		log.Info("retry ignored", map[string]interface{}{"reason": err.Error()})
		metrics.RetriesTotal.WithLabelValues(lenderID, "rejected").Inc()
		return false, nil
	case err != nil:
		return false, fmt.Errorf("reset record for retry: %w", err)
	}

	metrics.RetriesTotal.WithLabelValues(lenderID, "accepted").Inc()
	log.Info("retrying lender submission", map[string]interface{}{"retryCount": rec.RetryCount})

	ctx, span := o.telemetry.StartSpan(ctx, "lending.retry",
		attribute.String("applicationId", applicationID),
		attribute.String("lenderId", lenderID),
		attribute.Int("retryCount", rec.RetryCount))
	defer span.End()

	o.callLender(context.WithoutCancel(ctx), sub, lenderID)
	return true, nil
}

// ApplyExternalUpdate overwrites the record status with a lender-pushed
// update. With StrictTransitions a terminal record can only be re-sent the
// same status.
func (o *Orchestrator) ApplyExternalUpdate(ctx context.Context, applicationID, lenderID string, update models.StatusUpdate) (*models.LenderApplication, error) {
	if update == nil {
		return nil, fmt.Errorf("%w: empty status update", ErrInvalidRequest)
	}
	to := update.Status()

	rec, err := o.store.UpdateRecord(ctx, applicationID, lenderID, func(rec *models.LenderApplication) error {
		from := rec.Status
		if from.Terminal() && from != to {
			if o.config.StrictTransitions {
				return &TransitionError{From: from, To: to}
			}
			o.logger.Warn("external update leaves terminal status", map[string]interface{}{
				"applicationId": applicationID,
				"lenderId":      lenderID,
				"from":          from,
				"to":            to,
			})
		}
		models.ApplyStatusUpdate(rec, update)
		if !to.Pending() && rec.RespondedAt == nil {
			rec.MarkResponded(o.timestamp())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ExternalUpdatesTotal.WithLabelValues(string(to)).Inc()
	o.logger.Info("external status update applied", map[string]interface{}{
		"applicationId": applicationID,
		"lenderId":      lenderID,
		"status":        to,
	})
	o.emit(ctx, rec)
	return rec, nil
}

// GetStatus lists the lender records of an application. Unknown ids yield an
// empty list.
func (o *Orchestrator) GetStatus(ctx context.Context, applicationID string) ([]models.LenderApplication, error) {
	recs, err := o.store.ListRecords(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", applicationID, err)
	}
	if recs == nil {
		recs = []models.LenderApplication{}
	}
	return recs, nil
}

// GetSubmission returns store.ErrNotFound (wrapped) for unknown ids.
func (o *Orchestrator) GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error) {
	return o.store.GetSubmission(ctx, applicationID)
}

func (o *Orchestrator) ListAllRecords(ctx context.Context) ([]models.LenderApplication, error) {
	recs, err := o.store.ListAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	if recs == nil {
		recs = []models.LenderApplication{}
	}
	return recs, nil
}

// BestOffers returns the APPROVED records of an application, cheapest rate first.
func (o *Orchestrator) BestOffers(ctx context.Context, applicationID string) ([]models.LenderApplication, error) {
	recs, err := o.GetStatus(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	offers := make([]models.LenderApplication, 0, len(recs))
	for _, rec := range recs {
		if rec.Status == models.StatusApproved && rec.Terms != nil {
			offers = append(offers, rec)
		}
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Terms.InterestRate < offers[j].Terms.InterestRate
	})
	return offers, nil
}

// Analytics aggregates every stored record per lender, ordered by lender id.
func (o *Orchestrator) Analytics(ctx context.Context) ([]models.LenderAnalytics, error) {
	recs, err := o.ListAllRecords(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(recs, o.commissionRate), nil
}

func (o *Orchestrator) commissionRate(lenderID string) float64 {
	if o.lenders == nil {
		return 0
	}
	if l, ok := o.lenders.Get(lenderID); ok {
		return l.CommissionRate
	}
	return 0
}

// Aggregate folds records into per-lender analytics. commissionRate returns
// the lender's commission as a percentage of the approved amount.
func Aggregate(recs []models.LenderApplication, commissionRate func(lenderID string) float64) []models.LenderAnalytics {
	byLender := make(map[string]*models.LenderAnalytics)
	for _, rec := range recs {
		a, ok := byLender[rec.LenderID]
		if !ok {
			a = &models.LenderAnalytics{LenderID: rec.LenderID, LenderName: rec.LenderName}
			byLender[rec.LenderID] = a
		}

		a.Total++
		switch {
		case rec.Status == models.StatusApproved:
			a.Approved++
			if rec.Terms != nil {
				a.TotalInterestRate += rec.Terms.InterestRate
				if commissionRate != nil {
					a.TotalCommission += rec.Terms.ApprovedAmount * commissionRate(rec.LenderID) / 100
				}
			}
		case rec.Status == models.StatusRejected:
			a.Rejected++
		case rec.Status.Pending():
			a.Pending++
		}
		if rec.RespondedAt != nil {
			a.Responded++
			a.TotalResponseMinutes += rec.ResponseTimeMinutes
		}
	}

	out := make([]models.LenderAnalytics, 0, len(byLender))
	for _, a := range byLender {
		a.Derive()
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LenderID < out[j].LenderID })
	return out
}

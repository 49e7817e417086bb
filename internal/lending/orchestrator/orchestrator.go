// internal/lending/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/observability"
	"lending-workers/internal/lending/inflight"
	"lending-workers/internal/lending/simulator"
	"lending-workers/internal/lending/store"
	"lending-workers/internal/models"
)

var (
	ErrDuplicateSubmission = errors.New("DUPLICATE_SUBMISSION")
	ErrNoLenders           = errors.New("NO_LENDERS_RESOLVED")
	ErrInvalidTransition   = errors.New("INVALID_TRANSITION")
	ErrInvalidRequest      = errors.New("INVALID_SUBMISSION")
)

// TransitionError is returned by strict external updates that would leave a
// terminal status. It matches ErrInvalidTransition.
type TransitionError struct {
	From models.LenderStatus
	To   models.LenderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

const DefaultLenderTimeout = 30 * time.Second

type Config struct {
	// MaxSelectedLenders caps the scorer's pick when no lenders are given.
	MaxSelectedLenders int
	// MaxParallel bounds concurrent lender tasks per submission. Zero means one
	// goroutine per lender.
	MaxParallel int
	// LenderTimeout bounds a single lender call.
	LenderTimeout time.Duration
	// StrictTransitions refuses external updates that leave a terminal status.
	StrictTransitions bool
}

// Catalogue is the read side of the lender registry.
type Catalogue interface {
	Get(id string) (models.Lender, bool)
	ListActive() []models.Lender
}

// Decider produces a lender decision. *simulator.Simulator is the default.
type Decider interface {
	Decide(ctx context.Context, lenderID string, req simulator.DecisionRequest) (*simulator.Decision, error)
}

// AuditSink receives every record after a decision or external update.
type AuditSink interface {
	Record(ctx context.Context, rec *models.LenderApplication) error
}

// DecisionPublisher announces decided records to downstream consumers.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, rec *models.LenderApplication) error
}

type Deps struct {
	Lenders   Catalogue
	Decider   Decider
	Store     store.Store
	Guard     inflight.Guard
	Audit     AuditSink
	Publisher DecisionPublisher
	Telemetry *observability.Observability
}

type Orchestrator struct {
	config    Config
	lenders   Catalogue
	decider   Decider
	store     store.Store
	guard     inflight.Guard
	audit     AuditSink
	publisher DecisionPublisher
	telemetry *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

// New wires an orchestrator. Store and Guard default to their in-memory
// implementations.
func New(config Config, deps Deps, log logger.Logger) *Orchestrator {
	if config.LenderTimeout <= 0 {
		config.LenderTimeout = DefaultLenderTimeout
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Guard == nil {
		deps.Guard = inflight.NewMemoryGuard()
	}
	return &Orchestrator{
		config:    config,
		lenders:   deps.Lenders,
		decider:   deps.Decider,
		store:     deps.Store,
		guard:     deps.Guard,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		telemetry: deps.Telemetry,
		logger:    log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		now:       time.Now,
	}
}

func (o *Orchestrator) timestamp() time.Time {
	return o.now().UTC()
}

// InFlight reports whether a submission for applicationID is running.
func (o *Orchestrator) InFlight(ctx context.Context, applicationID string) (bool, error) {
	return o.guard.Held(ctx, applicationID)
}

// emit forwards a record to the audit sink and publisher. Failures are logged
// and never surface to the caller.
func (o *Orchestrator) emit(ctx context.Context, rec *models.LenderApplication) {
	fields := map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"lenderId":      rec.LenderID,
		"status":        rec.Status,
	}
	if o.audit != nil {
		if err := o.audit.Record(ctx, rec); err != nil {
			o.logger.WithError(err).Warn("audit record failed", fields)
		}
	}
	if o.publisher != nil {
		if err := o.publisher.PublishDecision(ctx, rec); err != nil {
			o.logger.WithError(err).Warn("decision publish failed", fields)
		}
	}
}

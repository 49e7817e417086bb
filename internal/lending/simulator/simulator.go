// internal/lending/simulator/simulator.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"lending-workers/internal/common/logger"
	"lending-workers/internal/models"
)

const DefaultLatencyUnit = 10 * time.Millisecond

var (
	ErrUnknownLender     = errors.New("UNKNOWN_LENDER")
	ErrLenderUnavailable = errors.New("lender gateway timeout")
)

var (
	standardConditions    = []string{"Income proof verification", "Comprehensive vehicle insurance with lender as loss payee", "EMI auto-debit mandate"}
	stricterConditions    = []string{"Co-applicant or guarantor required", "Additional 10% down payment", "Last 6 months bank statements"}
	simulatedRejectReason = []string{
		"Internal credit policy mismatch",
		"Insufficient repayment capacity",
		"High existing debt burden",
		"Unable to verify employment details",
		"Adverse remarks in credit bureau report",
	}
)

type Config struct {
	// LatencyUnit is the wall-clock time simulated per lender response minute.
	LatencyUnit time.Duration
	// FailureRate is the probability of a simulated transport failure.
	FailureRate float64
}

// LenderSource resolves lenders by id. *registry.Registry satisfies it.
type LenderSource interface {
	Get(id string) (models.Lender, bool)
}

// Decision is one lender's answer to a DecisionRequest.
type Decision struct {
	LenderID           string               `json:"lenderId"`
	LenderName         string               `json:"lenderName"`
	Status             models.LenderStatus  `json:"status"`
	Probability        float64              `json:"probability"`
	Terms              *models.LoanTerms    `json:"terms,omitempty"`
	Conditions         []string             `json:"conditions,omitempty"`
	CounterOffer       *models.CounterOffer `json:"counterOffer,omitempty"`
	RejectionReason    string               `json:"rejectionReason,omitempty"`
	ValidationFailures []string             `json:"validationFailures,omitempty"`
	LatencyMs          int64                `json:"latencyMs"`
	ResponseMinutes    float64              `json:"responseMinutes"`
	DecidedAt          time.Time            `json:"decidedAt"`
}

// Update converts the decision into the status update applied to the record.
func (d *Decision) Update() models.StatusUpdate {
	switch d.Status {
	case models.StatusApproved:
		return models.ApprovedUpdate{Terms: *d.Terms, Conditions: d.Conditions}
	case models.StatusConditionalApproval:
		return models.ConditionalApprovalUpdate{Terms: *d.Terms, Conditions: d.Conditions}
	case models.StatusCounterOffer:
		return models.CounterOfferUpdate{Terms: *d.Terms, CounterOffer: *d.CounterOffer}
	default:
		return models.RejectedUpdate{Reason: d.RejectionReason}
	}
}

type Simulator struct {
	config  *Config
	lenders LenderSource
	picker  ScenarioPicker
	logger  logger.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a simulator. A nil rng seeds from the global source and a nil
// picker uses a WeightedPicker over its own rng.
func New(config *Config, lenders LenderSource, picker ScenarioPicker, rng *rand.Rand, log logger.Logger) *Simulator {
	if config == nil {
		config = &Config{LatencyUnit: DefaultLatencyUnit}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if picker == nil {
		picker = NewWeightedPicker(rand.New(rand.NewSource(rng.Int63())))
	}
	return &Simulator{
		config:  config,
		lenders: lenders,
		picker:  picker,
		logger:  log.WithFields(map[string]interface{}{"component": "lender-simulator"}),
		now:     time.Now,
		rng:     rng,
	}
}

// Decide simulates the lender's decision API. It returns an error only for
// transport-class failures; ineligible applications come back as REJECTED.
func (s *Simulator) Decide(ctx context.Context, lenderID string, req DecisionRequest) (*Decision, error) {
	lender, ok := s.lenders.Get(lenderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLender, lenderID)
	}

	latency, minutes := s.latency(lender)
	if err := wait(ctx, latency); err != nil {
		return nil, fmt.Errorf("lender %s call interrupted: %w", lenderID, err)
	}

	if s.config.FailureRate > 0 && s.randFloat() < s.config.FailureRate {
		return nil, fmt.Errorf("%s: %w", lender.Name, ErrLenderUnavailable)
	}

	now := s.now().UTC()
	decision := &Decision{
		LenderID:        lender.ID,
		LenderName:      lender.Name,
		LatencyMs:       latency.Milliseconds(),
		ResponseMinutes: round2(minutes),
		DecidedAt:       now,
	}

	if failures := Validate(lender, req); len(failures) > 0 {
		decision.Status = models.StatusRejected
		decision.RejectionReason = failures[0]
		decision.ValidationFailures = failures
		s.logger.Debug("application failed eligibility", map[string]interface{}{
			"applicationId": req.ApplicationID,
			"lenderId":      lender.ID,
			"reasons":       failures,
		})
		return decision, nil
	}

	decision.Probability = ApprovalProbability(req, now.Year())
	scenario := s.picker.Pick(decision.Probability)
	s.fill(decision, scenario, lender, req)

	s.logger.Debug("lender decision simulated", map[string]interface{}{
		"applicationId": req.ApplicationID,
		"lenderId":      lender.ID,
		"status":        decision.Status,
		"probability":   decision.Probability,
		"latencyMs":     decision.LatencyMs,
	})
	return decision, nil
}

func (s *Simulator) fill(d *Decision, scenario Scenario, lender models.Lender, req DecisionRequest) {
	d.Status = scenario.Status()

	switch scenario {
	case ScenarioApproved:
		d.Terms = s.terms(lender, req, 8.5, 12.5, 0.8, 1.0)
		d.Conditions = append([]string(nil), standardConditions...)
	case ScenarioConditionalApproval:
		d.Terms = s.terms(lender, req, 10.0, 14.0, 0.7, 0.9)
		d.Conditions = append([]string(nil), stricterConditions...)
	case ScenarioCounterOffer:
		d.Terms = s.terms(lender, req, 9.0, 13.0, 0.6, 0.8)
		d.CounterOffer = &models.CounterOffer{
			Amount:       math.Round(0.9 * d.Terms.ApprovedAmount),
			TenureMonths: req.TenureMonths + 12,
			InterestRate: round2(d.Terms.InterestRate + 1),
		}
	default:
		d.Status = models.StatusRejected
		d.RejectionReason = simulatedRejectReason[s.intn(len(simulatedRejectReason))]
	}
}

func (s *Simulator) terms(lender models.Lender, req DecisionRequest, rateLo, rateHi, factorLo, factorHi float64) *models.LoanTerms {
	rate := round2(s.uniform(rateLo, rateHi))
	amount := math.Round(req.LoanAmount * s.uniform(factorLo, factorHi))
	return &models.LoanTerms{
		InterestRate:   rate,
		ApprovedAmount: amount,
		TenureMonths:   req.TenureMonths,
		ProcessingFee:  lender.ProcessingFee,
		EMI:            EMI(amount, rate, req.TenureMonths),
	}
}

// latency returns the wall-clock wait and the lender minutes it stands for.
func (s *Simulator) latency(lender models.Lender) (time.Duration, float64) {
	if lender.AvgResponseMinutes <= 0 {
		return 0, 0
	}
	minutes := lender.AvgResponseMinutes * s.uniform(0.5, 1.5)
	if s.config.LatencyUnit <= 0 {
		return 0, minutes
	}
	return time.Duration(minutes * float64(s.config.LatencyUnit)), minutes
}

func (s *Simulator) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.randFloat()*(hi-lo)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

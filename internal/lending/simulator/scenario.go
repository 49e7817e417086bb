// internal/lending/simulator/scenario.go
package simulator

import (
	"math/rand"
	"sync"

	"lending-workers/internal/models"
)

// Scenario is the outcome class drawn for an eligible application.
type Scenario string

const (
	ScenarioApproved            Scenario = Scenario(models.StatusApproved)
	ScenarioConditionalApproval Scenario = Scenario(models.StatusConditionalApproval)
	ScenarioCounterOffer        Scenario = Scenario(models.StatusCounterOffer)
	ScenarioRejected            Scenario = Scenario(models.StatusRejected)
)

func (s Scenario) Status() models.LenderStatus {
	return models.LenderStatus(s)
}

// ScenarioPicker turns an approval probability into an outcome. Swapping the
// picker is how a real lender client replaces the roulette.
type ScenarioPicker interface {
	Pick(probability float64) Scenario
}

type weightedScenario struct {
	scenario Scenario
	weight   float64
}

// defaultWeights are the baseline scenario weights. They sum to 1.
var defaultWeights = []weightedScenario{
	{ScenarioApproved, 0.60},
	{ScenarioConditionalApproval, 0.15},
	{ScenarioCounterOffer, 0.15},
	{ScenarioRejected, 0.10},
}

const (
	baselineProbability = 0.6
	minProbability      = 0.05
	maxProbability      = 0.95
)

// WeightedPicker runs a cumulative roulette over defaultWeights. The draw is
// scaled by (1-p)/(1-baseline): p at baseline reproduces the raw weights, a
// higher p compresses the draw toward APPROVED and a lower p pushes it past
// the cumulative total into REJECTED.
type WeightedPicker struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights []weightedScenario
}

func NewWeightedPicker(rng *rand.Rand) *WeightedPicker {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &WeightedPicker{rng: rng, weights: defaultWeights}
}

func (p *WeightedPicker) Pick(probability float64) Scenario {
	probability = clamp(probability, minProbability, maxProbability)

	p.mu.Lock()
	u := p.rng.Float64()
	p.mu.Unlock()

	r := u * (1 - probability) / (1 - baselineProbability)
	cumulative := 0.0
	for _, w := range p.weights {
		cumulative += w.weight
		if r < cumulative {
			return w.scenario
		}
	}
	return ScenarioRejected
}

// FixedPicker always returns the same scenario.
type FixedPicker Scenario

func (f FixedPicker) Pick(float64) Scenario {
	return Scenario(f)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// internal/lending/scorer/scorer.go
package scorer

import (
	"math"
	"sort"

	"lending-workers/internal/models"
)

const DefaultLimit = 5

// Applicant carries the fields the scorer compares against lender criteria.
type Applicant struct {
	CreditScore    int
	LoanAmount     float64
	VehicleType    string
	EmploymentType string
}

func ApplicantFromSubmission(sub *models.Submission) Applicant {
	return Applicant{
		CreditScore:    sub.CreditScore(),
		LoanAmount:     sub.Financial.LoanAmount,
		VehicleType:    sub.Asset.Type,
		EmploymentType: sub.Customer.EmploymentInfo.Type,
	}
}

// Ranked pairs a lender id with its compatibility score.
type Ranked struct {
	LenderID   string  `json:"lenderId"`
	LenderName string  `json:"lenderName"`
	Score      float64 `json:"score"`
}

// Score rates how well one lender fits the applicant.
func Score(l models.Lender, a Applicant) float64 {
	score := 0.0
	if a.CreditScore >= l.MinCreditScore {
		score += 20
	}
	if l.AmountInRange(a.LoanAmount) {
		score += 20
	}
	if l.SupportsVehicle(a.VehicleType) {
		score += 15
	}
	if l.SupportsEmployment(a.EmploymentType) {
		score += 15
	}
	score += l.ApprovalRate * 20
	score += math.Max(0, 10-l.AvgResponseMinutes/10)
	return score
}

// Rank scores every active lender and sorts descending. Ties keep catalogue order.
func Rank(lenders []models.Lender, a Applicant) []Ranked {
	ranked := make([]Ranked, 0, len(lenders))
	for _, l := range lenders {
		if !l.Active {
			continue
		}
		ranked = append(ranked, Ranked{LenderID: l.ID, LenderName: l.Name, Score: Score(l, a)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Select returns the ids of the top min(limit, active) lenders. A non-positive
// limit falls back to DefaultLimit.
func Select(lenders []models.Lender, a Applicant, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ranked := Rank(lenders, a)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.LenderID
	}
	return ids
}

// internal/lending/simulator/rules.go
package simulator

import (
	"fmt"
	"math"

	"lending-workers/internal/models"
)

// DecisionRequest is the slice of a submission a lender decides on.
type DecisionRequest struct {
	ApplicationID     string  `json:"applicationId"`
	CreditScore       int     `json:"creditScore"`
	MonthlyIncome     float64 `json:"monthlyIncome"`
	ExistingEMIs      float64 `json:"existingEmis"`
	LoanAmount        float64 `json:"loanAmount"`
	TenureMonths      int     `json:"tenureMonths"`
	VehicleType       string  `json:"vehicleType"`
	EmploymentType    string  `json:"employmentType"`
	YearsOfExperience float64 `json:"yearsOfExperience"`
	AssetYear         int     `json:"assetYear"`
}

func RequestFromSubmission(sub *models.Submission) DecisionRequest {
	return DecisionRequest{
		ApplicationID:     sub.ApplicationID,
		CreditScore:       sub.CreditScore(),
		MonthlyIncome:     sub.MonthlyIncome(),
		ExistingEMIs:      sub.ExistingEMIs(),
		LoanAmount:        sub.Financial.LoanAmount,
		TenureMonths:      sub.Financial.TenureMonths,
		VehicleType:       sub.Asset.Type,
		EmploymentType:    sub.Customer.EmploymentInfo.Type,
		YearsOfExperience: sub.Customer.EmploymentInfo.YearsOfExperience,
		AssetYear:         sub.Asset.Year,
	}
}

// Validate runs the hard eligibility rules and returns every failing reason in
// rule order. An empty result means the application is eligible.
func Validate(lender models.Lender, req DecisionRequest) []string {
	var reasons []string
	if req.CreditScore < lender.MinCreditScore {
		reasons = append(reasons, fmt.Sprintf("credit score %d is below the minimum of %d required by %s",
			req.CreditScore, lender.MinCreditScore, lender.Name))
	}
	if req.LoanAmount < lender.MinLoanAmount {
		reasons = append(reasons, fmt.Sprintf("requested amount %.0f is below the minimum loan amount of %.0f",
			req.LoanAmount, lender.MinLoanAmount))
	}
	if req.LoanAmount > lender.MaxLoanAmount {
		reasons = append(reasons, fmt.Sprintf("requested amount %.0f exceeds the maximum loan amount of %.0f",
			req.LoanAmount, lender.MaxLoanAmount))
	}
	if !lender.SupportsVehicle(req.VehicleType) {
		reasons = append(reasons, fmt.Sprintf("vehicle type %q is not financed by %s", req.VehicleType, lender.Name))
	}
	if !lender.SupportsEmployment(req.EmploymentType) {
		reasons = append(reasons, fmt.Sprintf("employment type %q is not accepted by %s", req.EmploymentType, lender.Name))
	}
	return reasons
}

// DebtToIncome counts 2% of the requested amount as the new obligation.
// Non-positive income yields +Inf.
func DebtToIncome(req DecisionRequest) float64 {
	if req.MonthlyIncome <= 0 {
		return math.Inf(1)
	}
	return (req.ExistingEMIs + 0.02*req.LoanAmount) / req.MonthlyIncome
}

// ApprovalProbability adjusts the 0.6 baseline by credit, DTI, employment
// tenure and asset age. The result is not clamped.
func ApprovalProbability(req DecisionRequest, currentYear int) float64 {
	p := baselineProbability

	switch {
	case req.CreditScore >= 750:
		p += 0.2
	case req.CreditScore >= 700:
		p += 0.1
	case req.CreditScore < 650:
		p -= 0.2
	}

	dti := DebtToIncome(req)
	switch {
	case dti < 0.3:
		p += 0.15
	case dti > 0.6:
		p -= 0.25
	}

	switch {
	case req.YearsOfExperience >= 5:
		p += 0.1
	case req.YearsOfExperience < 2:
		p -= 0.15
	}

	age := currentYear - req.AssetYear
	switch {
	case age <= 3:
		p += 0.1
	case age > 8:
		p -= 0.2
	}

	return p
}

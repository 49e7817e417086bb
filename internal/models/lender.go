// internal/models/lender.go
package models

// Lender is a lending counterparty (bank/NBFC) in the catalogue.
type Lender struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Active             bool     `json:"active" yaml:"active"`
	ApprovalRate       float64  `json:"approvalRate" yaml:"approval_rate"`
	AvgResponseMinutes float64  `json:"avgResponseMinutes" yaml:"avg_response_minutes"`
	MinCreditScore     int      `json:"minCreditScore" yaml:"min_credit_score"`
	MinLoanAmount      float64  `json:"minLoanAmount" yaml:"min_loan_amount"`
	MaxLoanAmount      float64  `json:"maxLoanAmount" yaml:"max_loan_amount"`
	ProcessingFee      float64  `json:"processingFee" yaml:"processing_fee"`
	CommissionRate     float64  `json:"commissionRate" yaml:"commission_rate"` // percent of approved amount
	VehicleTypes       []string `json:"vehicleTypes" yaml:"vehicle_types"`
	EmploymentTypes    []string `json:"employmentTypes" yaml:"employment_types"`
}

// SupportsVehicle reports whether the lender finances the given vehicle category.
func (l Lender) SupportsVehicle(vehicleType string) bool {
	return contains(l.VehicleTypes, vehicleType)
}

// SupportsEmployment reports whether the lender accepts the given employment category.
func (l Lender) SupportsEmployment(employmentType string) bool {
	return contains(l.EmploymentTypes, employmentType)
}

// AmountInRange reports whether amount lies within [MinLoanAmount, MaxLoanAmount].
func (l Lender) AmountInRange(amount float64) bool {
	return amount >= l.MinLoanAmount && amount <= l.MaxLoanAmount
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

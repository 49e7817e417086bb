// internal/workers/lending/get-application-status/models.go
package getapplicationstatus

import "lending-workers/internal/models"

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type LenderStatus struct {
	LenderID            string            `json:"lenderId"`
	LenderName          string            `json:"lenderName"`
	Status              string            `json:"status"`
	Terms               *models.LoanTerms `json:"terms,omitempty"`
	RejectionReason     string            `json:"rejectionReason,omitempty"`
	RequiredDocuments   []string          `json:"requiredDocuments,omitempty"`
	RetryCount          int               `json:"retryCount"`
	ResponseTimeMinutes float64           `json:"responseTimeMinutes,omitempty"`
}

type Summary struct {
	Total     int `json:"total"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Responded int `json:"responded"`
}

type Offer struct {
	LenderID       string  `json:"lenderId"`
	LenderName     string  `json:"lenderName"`
	InterestRate   float64 `json:"interestRate"`
	ApprovedAmount float64 `json:"approvedAmount"`
	TenureMonths   int     `json:"tenureMonths"`
	EMI            float64 `json:"emi"`
}

type Output struct {
	Found         bool            `json:"found"`
	ApplicationID string          `json:"applicationId"`
	Priority      models.Priority `json:"priority,omitempty"`
	InFlight      bool            `json:"inFlight"`
	// Settled is true once no lender still owes a decision.
	Settled   bool           `json:"settled"`
	Lenders   []LenderStatus `json:"lenders"`
	Summary   Summary        `json:"summary"`
	Offers    []Offer        `json:"offers"`
	BestOffer *Offer         `json:"bestOffer,omitempty"`
}

// internal/models/lender_application.go
package models

import (
	"encoding/json"
	"time"
)

// LenderStatus is the state of one lender's handling of an application.
type LenderStatus string

const (
	StatusPending             LenderStatus = "PENDING"
	StatusSubmitted           LenderStatus = "SUBMITTED"
	StatusUnderReview         LenderStatus = "UNDER_REVIEW"
	StatusApproved            LenderStatus = "APPROVED"
	StatusRejected            LenderStatus = "REJECTED"
	StatusConditionalApproval LenderStatus = "CONDITIONAL_APPROVAL"
	StatusCounterOffer        LenderStatus = "COUNTER_OFFER"
	StatusDocumentsRequired   LenderStatus = "DOCUMENTS_REQUIRED"
	StatusFailed              LenderStatus = "FAILED"
	StatusExpired             LenderStatus = "EXPIRED"
)

// AllStatuses lists every defined status.
var AllStatuses = []LenderStatus{
	StatusPending,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusConditionalApproval,
	StatusCounterOffer,
	StatusDocumentsRequired,
	StatusFailed,
	StatusExpired,
}

func (s LenderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the normal flow. FAILED is not
// terminal: it can be retried.
func (s LenderStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusConditionalApproval, StatusCounterOffer, StatusExpired:
		return true
	}
	return false
}

// Pending reports whether the lender still owes a decision.
func (s LenderStatus) Pending() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusUnderReview, StatusDocumentsRequired:
		return true
	}
	return false
}

// CanTransition encodes the forward state machine:
// PENDING -> SUBMITTED -> {UNDER_REVIEW, APPROVED, REJECTED, CONDITIONAL_APPROVAL,
// COUNTER_OFFER, DOCUMENTS_REQUIRED, FAILED, EXPIRED}; FAILED -> SUBMITTED.
func CanTransition(from, to LenderStatus) bool {
	if !to.Valid() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusSubmitted
	case StatusFailed:
		return to == StatusSubmitted
	case StatusSubmitted, StatusUnderReview, StatusDocumentsRequired:
		return to != StatusPending && to != StatusSubmitted
	}
	return false
}

type LoanTerms struct {
	InterestRate   float64 `json:"interestRate"`
	ApprovedAmount float64 `json:"approvedAmount"`
	TenureMonths   int     `json:"tenureMonths"`
	ProcessingFee  float64 `json:"processingFee"`
	EMI            float64 `json:"emi"`
}

type CounterOffer struct {
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenureMonths"`
	InterestRate float64 `json:"interestRate"`
}

// LenderApplication tracks one (application, lender) pair.
type LenderApplication struct {
	ID                  string          `json:"id"`
	ApplicationID       string          `json:"applicationId"`
	LenderID            string          `json:"lenderId"`
	LenderName          string          `json:"lenderName"`
	Status              LenderStatus    `json:"status"`
	SubmittedAt         time.Time       `json:"submittedAt"`
	RespondedAt         *time.Time      `json:"respondedAt,omitempty"`
	ResponseTimeMinutes float64         `json:"responseTimeMinutes,omitempty"`
	Terms               *LoanTerms      `json:"terms,omitempty"`
	RejectionReason     string          `json:"rejectionReason,omitempty"`
	Conditions          []string        `json:"conditions,omitempty"`
	RequiredDocuments   []string        `json:"requiredDocuments,omitempty"`
	CounterOffer        *CounterOffer   `json:"counterOffer,omitempty"`
	Note                string          `json:"note,omitempty"`
	RetryCount          int             `json:"retryCount"`
	LastRetryAt         *time.Time      `json:"lastRetryAt,omitempty"`
	RawResponse         json.RawMessage `json:"rawResponse,omitempty"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// LenderApplicationID builds the composite record id.
func LenderApplicationID(applicationID, lenderID string) string {
	return applicationID + "_" + lenderID
}

// ClearOutcome drops every decision field, leaving identity and retry bookkeeping.
func (a *LenderApplication) ClearOutcome() {
	a.RespondedAt = nil
	a.ResponseTimeMinutes = 0
	a.Terms = nil
	a.RejectionReason = ""
	a.Conditions = nil
	a.RequiredDocuments = nil
	a.CounterOffer = nil
	a.Note = ""
	a.RawResponse = nil
}

// MarkResponded stamps the response time relative to SubmittedAt.
func (a *LenderApplication) MarkResponded(at time.Time) {
	a.RespondedAt = &at
	a.ResponseTimeMinutes = at.Sub(a.SubmittedAt).Minutes()
}

// Clone returns a deep copy so callers can't mutate stored state.
func (a LenderApplication) Clone() LenderApplication {
	out := a
	if a.RespondedAt != nil {
		t := *a.RespondedAt
		out.RespondedAt = &t
	}
	if a.LastRetryAt != nil {
		t := *a.LastRetryAt
		out.LastRetryAt = &t
	}
	if a.Terms != nil {
		terms := *a.Terms
		out.Terms = &terms
	}
	if a.CounterOffer != nil {
		offer := *a.CounterOffer
		out.CounterOffer = &offer
	}
	out.Conditions = append([]string(nil), a.Conditions...)
	out.RequiredDocuments = append([]string(nil), a.RequiredDocuments...)
	out.RawResponse = append(json.RawMessage(nil), a.RawResponse...)
	return out
}

// LenderAnalytics aggregates records for a single lender.
type LenderAnalytics struct {
	LenderID               string  `json:"lenderId"`
	LenderName             string  `json:"lenderName"`
	Total                  int     `json:"total"`
	Approved               int     `json:"approved"`
	Rejected               int     `json:"rejected"`
	Pending                int     `json:"pending"`
	Responded              int     `json:"responded"`
	TotalResponseMinutes   float64 `json:"totalResponseMinutes"`
	TotalInterestRate      float64 `json:"totalInterestRate"`
	TotalCommission        float64 `json:"totalCommission"`
	ApprovalRate           float64 `json:"approvalRate"`
	AverageResponseMinutes float64 `json:"averageResponseMinutes"`
	AverageInterestRate    float64 `json:"averageInterestRate"`
}

// Derive fills the ratio fields from the running totals.
func (a *LenderAnalytics) Derive() {
	a.ApprovalRate, a.AverageResponseMinutes, a.AverageInterestRate = 0, 0, 0
	if a.Total > 0 {
		a.ApprovalRate = float64(a.Approved) / float64(a.Total)
	}
	if a.Responded > 0 {
		a.AverageResponseMinutes = a.TotalResponseMinutes / float64(a.Responded)
	}
	if a.Approved > 0 {
		a.AverageInterestRate = a.TotalInterestRate / float64(a.Approved)
	}
}

// internal/workers/lending/submit-lender-application/models.go
package submitlenderapplication

import (
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/models"
)

type Input struct {
	ApplicationID string                  `json:"applicationId"`
	Customer      models.Customer         `json:"customer"`
	Asset         models.Asset            `json:"asset"`
	Financial     models.FinancialRequest `json:"financial"`
	Documents     []models.Document       `json:"documents,omitempty"`
	LenderIDs     []string                `json:"lenderIds,omitempty"`
}

func (in *Input) request() orchestrator.SubmitRequest {
	return orchestrator.SubmitRequest{
		ApplicationID: in.ApplicationID,
		Customer:      in.Customer,
		Asset:         in.Asset,
		Financial:     in.Financial,
		Documents:     in.Documents,
		LenderIDs:     in.LenderIDs,
	}
}

type Output struct {
	Success            bool            `json:"submissionSuccess"`
	ApplicationID      string          `json:"applicationId"`
	Priority           models.Priority `json:"priority"`
	SubmittedLenderIDs []string        `json:"submittedLenderIds"`
	FailedLenderIDs    []string        `json:"failedLenderIds"`
	SubmittedCount     int             `json:"submittedCount"`
	FailedCount        int             `json:"failedCount"`
	Message            string          `json:"submissionMessage"`
}

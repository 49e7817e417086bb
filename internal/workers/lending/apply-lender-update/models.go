// internal/workers/lending/apply-lender-update/models.go
package applylenderupdate

import (
	"encoding/json"
	"time"

	"lending-workers/internal/models"
)

// Input carries a lender-pushed status change. Payload shape depends on
// Status; see models.DecodeStatusUpdate.
type Input struct {
	ApplicationID string          `json:"applicationId"`
	LenderID      string          `json:"lenderId"`
	Status        string          `json:"status"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type Output struct {
	Updated             bool              `json:"updated"`
	ApplicationID       string            `json:"applicationId"`
	LenderID            string            `json:"lenderId"`
	Status              string            `json:"lenderStatus"`
	Terms               *models.LoanTerms `json:"terms,omitempty"`
	RespondedAt         *time.Time        `json:"respondedAt,omitempty"`
	ResponseTimeMinutes float64           `json:"responseTimeMinutes"`
}

// internal/workers/lending/compute-lender-analytics/models.go
package computelenderanalytics

import "lending-workers/internal/models"

type Input struct {
	// LenderIDs restricts the report. Empty reports every lender with records.
	LenderIDs []string `json:"lenderIds,omitempty"`
}

type Totals struct {
	Records         int     `json:"records"`
	Approved        int     `json:"approved"`
	Rejected        int     `json:"rejected"`
	Pending         int     `json:"pending"`
	TotalCommission float64 `json:"totalCommission"`
	ApprovalRate    float64 `json:"approvalRate"`
}

type Output struct {
	Lenders []models.LenderAnalytics `json:"lenderAnalytics"`
	Totals  Totals                   `json:"analyticsTotals"`
	// TopLenderID has the highest approval rate; ties go to the lower average rate.
	TopLenderID string `json:"topLenderId,omitempty"`
}

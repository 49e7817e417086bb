// internal/workers/lending/retry-lender-submission/models.go
package retrylendersubmission

type Input struct {
	ApplicationID string `json:"applicationId"`
	LenderID      string `json:"lenderId"`
}

type Output struct {
	Retried       bool   `json:"retried"`
	ApplicationID string `json:"applicationId"`
	LenderID      string `json:"lenderId"`
	// Status is the record status after the retry settled, empty when the
	// record does not exist.
	Status     string `json:"lenderStatus,omitempty"`
	RetryCount int    `json:"retryCount"`
	Message    string `json:"retryMessage"`
}

// internal/lending/store/store.go
package store

import (
	"context"
	"errors"
	"sort"

	"lending-workers/internal/models"
)

var ErrNotFound = errors.New("NOT_FOUND")

// UpdateFunc mutates a record in place. Returning an error aborts the update
// and nothing is written.
type UpdateFunc func(rec *models.LenderApplication) error

// Store persists submissions and their per-lender records. Implementations
// must be safe for concurrent use by fan-out tasks of the same application.
type Store interface {
	// SaveSubmission stores sub and drops any records left from an earlier
	// submission with the same application id.
	SaveSubmission(ctx context.Context, sub *models.Submission) error
	GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error)

	// PutRecord adds or replaces the record for (ApplicationID, LenderID).
	PutRecord(ctx context.Context, rec *models.LenderApplication) error
	// UpdateRecord applies fn atomically and returns the stored result.
	UpdateRecord(ctx context.Context, applicationID, lenderID string, fn UpdateFunc) (*models.LenderApplication, error)
	GetRecord(ctx context.Context, applicationID, lenderID string) (*models.LenderApplication, error)
	ListRecords(ctx context.Context, applicationID string) ([]models.LenderApplication, error)
	ListAllRecords(ctx context.Context) ([]models.LenderApplication, error)
}

func sortRecords(recs []models.LenderApplication) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.ApplicationID != b.ApplicationID {
			return a.ApplicationID < b.ApplicationID
		}
		return a.LenderID < b.LenderID
	})
}

// internal/lending/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lending-workers/internal/models"
)

// MemoryStore keeps everything in process memory. Listing preserves insertion
// order.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]*models.Submission
	records     map[string][]*models.LenderApplication
	order       []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]*models.Submission),
		records:     make(map[string][]*models.LenderApplication),
	}
}

func (s *MemoryStore) SaveSubmission(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[sub.ApplicationID]; !exists {
		s.order = append(s.order, sub.ApplicationID)
	}
	s.submissions[sub.ApplicationID] = sub.Clone()
	delete(s.records, sub.ApplicationID)
	return nil
}

func (s *MemoryStore) GetSubmission(_ context.Context, applicationID string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[applicationID]
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, applicationID)
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) PutRecord(_ context.Context, rec *models.LenderApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rec.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}

	list := s.records[rec.ApplicationID]
	for i, existing := range list {
		if existing.LenderID == rec.LenderID {
			list[i] = &stored
			return nil
		}
	}
	if _, known := s.submissions[rec.ApplicationID]; !known && len(list) == 0 {
		s.order = appendUnique(s.order, rec.ApplicationID)
	}
	s.records[rec.ApplicationID] = append(list, &stored)
	return nil
}

func (s *MemoryStore) UpdateRecord(_ context.Context, applicationID, lenderID string, fn UpdateFunc) (*models.LenderApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.records[applicationID] {
		if existing.LenderID != lenderID {
			continue
		}
		working := existing.Clone()
		if err := fn(&working); err != nil {
			return nil, err
		}
		working.UpdatedAt = time.Now().UTC()
		s.records[applicationID][i] = &working

		out := working.Clone()
		return &out, nil
	}
	return nil, fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
}

func (s *MemoryStore) GetRecord(_ context.Context, applicationID, lenderID string) (*models.LenderApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.records[applicationID] {
		if existing.LenderID == lenderID {
			out := existing.Clone()
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
}

func (s *MemoryStore) ListRecords(_ context.Context, applicationID string) ([]models.LenderApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.records[applicationID]
	out := make([]models.LenderApplication, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *MemoryStore) ListAllRecords(_ context.Context) ([]models.LenderApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LenderApplication
	for _, appID := range s.order {
		for _, rec := range s.records[appID] {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

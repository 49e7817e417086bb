// internal/lending/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"lending-workers/internal/models"
)

var (
	ErrEmptyCatalogue = errors.New("LENDER_CATALOGUE_EMPTY")
	ErrInvalidLender  = errors.New("LENDER_CATALOGUE_INVALID")
)

// Registry is a read-only lender catalogue. It is safe for concurrent use
// because nothing mutates it after construction.
type Registry struct {
	lenders []models.Lender
	byID    map[string]int
}

type catalogueFile struct {
	Lenders []models.Lender `yaml:"lenders" json:"lenders"`
}

// New validates lenders and builds a registry preserving the given order.
func New(lenders []models.Lender) (*Registry, error) {
	if len(lenders) == 0 {
		return nil, ErrEmptyCatalogue
	}

	r := &Registry{
		lenders: make([]models.Lender, 0, len(lenders)),
		byID:    make(map[string]int, len(lenders)),
	}
	for i, l := range lenders {
		if err := validateLender(l); err != nil {
			return nil, fmt.Errorf("%w: lender #%d: %v", ErrInvalidLender, i, err)
		}
		if _, dup := r.byID[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate lender id %q", ErrInvalidLender, l.ID)
		}
		r.byID[l.ID] = len(r.lenders)
		r.lenders = append(r.lenders, cloneLender(l))
	}
	return r, nil
}

// LoadFile reads a catalogue from a YAML or JSON file. JSON is parsed by the
// YAML decoder, so both share the snake_case field names.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lender catalogue: %w", err)
	}

	var file catalogueFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse lender catalogue %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported lender catalogue format: %s", path)
	}

	return New(file.Lenders)
}

func (r *Registry) Get(id string) (models.Lender, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return models.Lender{}, false
	}
	return cloneLender(r.lenders[idx]), true
}

// List returns every lender in catalogue order.
func (r *Registry) List() []models.Lender {
	out := make([]models.Lender, 0, len(r.lenders))
	for _, l := range r.lenders {
		out = append(out, cloneLender(l))
	}
	return out
}

// ListActive returns active lenders in catalogue order.
func (r *Registry) ListActive() []models.Lender {
	out := make([]models.Lender, 0, len(r.lenders))
	for _, l := range r.lenders {
		if l.Active {
			out = append(out, cloneLender(l))
		}
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.lenders)
}

func validateLender(l models.Lender) error {
	if strings.TrimSpace(l.ID) == "" {
		return errors.New("id is required")
	}
	if l.MinLoanAmount > l.MaxLoanAmount {
		return fmt.Errorf("%s: min_loan_amount %.0f exceeds max_loan_amount %.0f", l.ID, l.MinLoanAmount, l.MaxLoanAmount)
	}
	if l.ApprovalRate < 0 || l.ApprovalRate > 1 {
		return fmt.Errorf("%s: approval_rate %.2f outside [0,1]", l.ID, l.ApprovalRate)
	}
	if l.AvgResponseMinutes < 0 {
		return fmt.Errorf("%s: avg_response_minutes must not be negative", l.ID)
	}
	return nil
}

func cloneLender(l models.Lender) models.Lender {
	l.VehicleTypes = append([]string(nil), l.VehicleTypes...)
	l.EmploymentTypes = append([]string(nil), l.EmploymentTypes...)
	return l
}

// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/common/errors"
	ala "lending-workers/internal/workers/lending/apply-lender-update"
	cla "lending-workers/internal/workers/lending/compute-lender-analytics"
	gas "lending-workers/internal/workers/lending/get-application-status"
	rls "lending-workers/internal/workers/lending/retry-lender-submission"
	son "lending-workers/internal/workers/lending/send-offer-notification"
	sla "lending-workers/internal/workers/lending/submit-lender-application"
)

const registryFile = "../../configs/activity-registry.json"

// ==========================
// Shipped Registry Tests
// ==========================

func TestShippedRegistry_CoversLendingWorkers(t *testing.T) {
	reg, err := LoadRegistry(registryFile)
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	workers := map[string]time.Duration{
		sla.TaskType: sla.DefaultConfig().Timeout,
		rls.TaskType: rls.DefaultConfig().Timeout,
		ala.TaskType: ala.DefaultConfig().Timeout,
		gas.TaskType: gas.DefaultConfig().Timeout,
		cla.TaskType: cla.DefaultConfig().Timeout,
		son.TaskType: son.DefaultConfig().Timeout,
	}
	assert.Len(t, reg.Activities, len(workers))

	for taskType, timeout := range workers {
		t.Run(taskType, func(t *testing.T) {
			a, err := reg.Find(taskType)
			require.NoError(t, err)

			d, err := time.ParseDuration(a.Timeout)
			require.NoError(t, err)
			assert.Equal(t, timeout, d)
		})
	}
}

func TestShippedRegistry_ErrorCodesAreBPMNCodes(t *testing.T) {
	reg, err := LoadRegistry(registryFile)
	require.NoError(t, err)

	known := map[string]bool{}
	for _, code := range errors.BPMNErrorMapping {
		known[code] = true
	}
	for _, a := range reg.Activities {
		for _, code := range a.ErrorCodes {
			assert.True(t, known[code], "%s declares unknown error code %s", a.ID, code)
		}
	}
}

// ==========================
// Mutation Tests
// ==========================

func testRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{ID: "get-application-status", DisplayName: "Get Application Status", Category: "lending", TaskType: "get-application-status", Timeout: "10s"},
		},
	}
}

func TestAdd(t *testing.T) {
	reg := testRegistry()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, reg.Add(Activity{ID: "score-lenders", DisplayName: "Score Lenders", Category: "lending", TaskType: "score-lenders"}, now))
	assert.Len(t, reg.Activities, 2)
	assert.Equal(t, "2026-10-18T09:00:00Z", reg.LastUpdated)

	err := reg.Add(Activity{ID: "score-lenders"}, now)
	assert.ErrorContains(t, err, "already exists")
}

func TestSet(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		id      string
		field   string
		value   string
		wantErr string
		check   func(t *testing.T, a Activity)
	}{
		{
			name: "status", id: "get-application-status", field: "status", value: StatusVerified,
			check: func(t *testing.T, a Activity) { assert.Equal(t, StatusVerified, a.ImplementationStatus) },
		},
		{
			name: "retries", id: "get-application-status", field: "retries", value: "5",
			check: func(t *testing.T, a Activity) { assert.Equal(t, 5, a.Retries) },
		},
		{
			name: "timeout", id: "get-application-status", field: "timeout", value: "45s",
			check: func(t *testing.T, a Activity) { assert.Equal(t, "45s", a.Timeout) },
		},
		{name: "bad status", id: "get-application-status", field: "status", value: "shipped", wantErr: "invalid status"},
		{name: "bad retries", id: "get-application-status", field: "retries", value: "many", wantErr: "invalid retries"},
		{name: "bad timeout", id: "get-application-status", field: "timeout", value: "soon", wantErr: "invalid timeout"},
		{name: "unknown field", id: "get-application-status", field: "owner", value: "x", wantErr: "unknown field"},
		{name: "unknown activity", id: "nope", field: "status", value: StatusPlanned, wantErr: "activity not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testRegistry()
			err := reg.Set(tt.id, tt.field, tt.value, now)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, reg.Activities[0])
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{name: "valid", mutate: func(*ActivityRegistry) {}},
		{name: "empty", mutate: func(r *ActivityRegistry) { r.Activities = nil }, wantErr: "no activities"},
		{
			name: "duplicate task type",
			mutate: func(r *ActivityRegistry) {
				r.Activities = append(r.Activities, Activity{ID: "other", DisplayName: "Other", Category: "lending", TaskType: "get-application-status"})
			},
			wantErr: "duplicate task type",
		},
		{
			name:    "missing category",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Category = "" },
			wantErr: "missing required field: Category",
		},
		{
			name:    "bad timeout",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Timeout = "ten seconds" },
			wantErr: "invalid timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testRegistry()
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")
	require.NoError(t, Save(testRegistry(), path))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	a, err := reg.Find("get-application-status")
	require.NoError(t, err)
	assert.Equal(t, "Get Application Status", a.DisplayName)

	_, err = reg.Find("submit-lender-application")
	assert.ErrorIs(t, err, ErrNotFound)
}

// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSubmission = `{
	"applicationId": "APP-2026-0001",
	"customer": {
		"personalInfo": {"fullName": "Asha Rao", "email": "asha@example.com", "phone": "+91 98000 00000"},
		"employmentInfo": {"employmentType": "salaried", "yearsOfExperience": 6},
		"financialInfo": {"monthlyIncome": 120000, "creditScore": 780}
	},
	"asset": {"vehicleType": "car", "make": "Tata", "model": "Nexon", "year": 2025, "price": 1200000},
	"financial": {"loanAmount": 900000, "tenureMonths": 60},
	"documents": [{"type": "pan", "reference": "doc-1"}],
	"lenderIds": ["hdfc", "icici"]
}`

func TestLoad_EmbeddedSchemas(t *testing.T) {
	for _, name := range []string{SchemaSubmitApplication, SchemaStatusUpdate} {
		s, err := Load(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())

		again, err := Load(name)
		require.NoError(t, err)
		assert.Same(t, s, again)
	}

	_, err := Load("nope")
	assert.Error(t, err)
}

func TestSubmitSchema(t *testing.T) {
	s, err := Load(SchemaSubmitApplication)
	require.NoError(t, err)

	tests := []struct {
		name       string
		document   string
		valid      bool
		wantFields []string
	}{
		{name: "valid", document: validSubmission, valid: true},
		{
			name:       "missing top level fields",
			document:   `{"applicationId": "APP-1"}`,
			wantFields: []string{"asset", "customer", "financial"},
		},
		{
			name: "nested violations",
			document: `{
				"applicationId": "APP 1",
				"customer": {
					"personalInfo": {"email": "not-an-email", "phone": "12"},
					"employmentInfo": {"employmentType": "salaried"},
					"financialInfo": {"creditScore": 1200}
				},
				"asset": {"vehicleType": "car", "price": 100},
				"financial": {"loanAmount": 0, "tenureMonths": 12}
			}`,
			wantFields: []string{
				"applicationId",
				"customer.financialInfo.creditScore",
				"customer.personalInfo.email",
				"customer.personalInfo.fullName",
				"customer.personalInfo.phone",
				"financial.loanAmount",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.ValidateJSON([]byte(tt.document))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.Error())
			for _, field := range tt.wantFields {
				assert.True(t, result.HasErrors(field), "expected error on %s, got %v", field, result.GetErrorMessages())
			}
		})
	}
}

func TestSubmitSchema_MalformedJSON(t *testing.T) {
	s, err := Load(SchemaSubmitApplication)
	require.NoError(t, err)

	_, err = s.ValidateJSON([]byte(`{"applicationId":`))
	assert.Error(t, err)
}

func TestStatusUpdateSchema(t *testing.T) {
	s, err := Load(SchemaStatusUpdate)
	require.NoError(t, err)

	result, err := s.ValidateValue(map[string]interface{}{
		"status":  "APPROVED",
		"payload": map[string]interface{}{"terms": map[string]interface{}{"interestRate": 9.5}},
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = s.ValidateValue(map[string]interface{}{"status": "MAYBE"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("status"))
	assert.Len(t, result.GetErrorsForField("status"), 1)
	assert.Contains(t, result.Error(), "status:")
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+919800000000", true},
		{"(022) 2345-6789", true},
		{"12345", false},
		{"call me", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePhone(tt.phone))
		})
	}
}

package validation

import (
	"errors"
	"strings"
	"testing"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestValidator_Validate(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name       string
		typ        models.SubmissionType
		data       map[string]string
		wantErr    bool
		wantFields []string
	}{
		{
			name: "valid order",
			typ:  models.SubmissionTypeOrder,
			data: map[string]string{"name": "Priya", "email": "priya@example.com", "product": "Sanctuary 2", "quantity": "1"},
		},
		{
			name: "valid contact with phone only",
			typ:  models.SubmissionTypeContact,
			data: map[string]string{"name": "Ravi", "phone": "+46 70 123 45 67"},
		},
		{
			name: "extra string fields allowed",
			typ:  models.SubmissionTypeConsultation,
			data: map[string]string{"name": "Anna", "email": "anna@example.se", "interest": "Custom build", "budget": "high"},
		},
		{
			name:       "order without product",
			typ:        models.SubmissionTypeOrder,
			data:       map[string]string{"name": "Priya", "email": "priya@example.com"},
			wantErr:    true,
			wantFields: []string{"product"},
		},
		{
			name:       "missing name",
			typ:        models.SubmissionTypeContact,
			data:       map[string]string{"email": "x@example.com"},
			wantErr:    true,
			wantFields: []string{"name"},
		},
		{
			name:       "no way to reply",
			typ:        models.SubmissionTypeContact,
			data:       map[string]string{"name": "Ravi"},
			wantErr:    true,
			wantFields: []string{"email|phone"},
		},
		{
			name:       "bad email",
			typ:        models.SubmissionTypeContact,
			data:       map[string]string{"name": "Ravi", "email": "not-an-email"},
			wantErr:    true,
			wantFields: []string{"email"},
		},
		{
			name:       "bad quantity",
			typ:        models.SubmissionTypeOrder,
			data:       map[string]string{"name": "Priya", "phone": "0701234567", "product": "x", "quantity": "0"},
			wantErr:    true,
			wantFields: []string{"quantity"},
		},
		{
			name:       "oversized free text",
			typ:        models.SubmissionTypeContact,
			data:       map[string]string{"name": "Ravi", "phone": "0701234567", "notes": strings.Repeat("a", 5001)},
			wantErr:    true,
			wantFields: []string{"notes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.typ, tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var stdErr *commonerrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, commonerrors.ErrCodeValidationFailed, stdErr.Code)
			for _, f := range tt.wantFields {
				assert.Contains(t, stdErr.Metadata["fields"], f)
			}
		})
	}
}

func TestValidator_UnknownType(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(models.SubmissionType("newsletter"), map[string]string{"name": "x"})

	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeInvalidSubmissionType, stdErr.Code)
}

func TestValidator_CheckNilData(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Check(models.SubmissionTypeContact, nil)

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

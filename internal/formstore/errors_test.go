package formstore

import (
	"errors"
	"fmt"
	"testing"

	commonerrors "swedana-forms/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func TestToStandardError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want commonerrors.ErrorCode
	}{
		{"invalid type", fmt.Errorf("%w: %q", ErrInvalidType, "x"), commonerrors.ErrCodeInvalidSubmissionType},
		{"invalid status", fmt.Errorf("%w: %q", ErrInvalidStatus, "x"), commonerrors.ErrCodeInvalidStatus},
		{"quota", fmt.Errorf("%w: %w", ErrStorageWrite, ErrQuotaExceeded), commonerrors.ErrCodeStorageQuotaExceeded},
		{"serialization", fmt.Errorf("%w: %w", ErrStorageWrite, ErrSerialization), commonerrors.ErrCodeSerializationFailed},
		{"write", fmt.Errorf("%w: disk", ErrStorageWrite), commonerrors.ErrCodeStorageWriteFailed},
		{"read", fmt.Errorf("%w: %w", ErrStorageRead, ErrSerialization), commonerrors.ErrCodeStorageReadFailed},
		{"unknown", errors.New("boom"), commonerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToStandardError(tt.err)
			assert.Equal(t, tt.want, got.Code)
		})
	}

	assert.Nil(t, ToStandardError(nil))
}

// internal/workers/submissions/update-submission-status/handler_test.go
package updatesubmissionstatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"swedana-forms/internal/common/config"
	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setup(t *testing.T) (*Handler, *formstore.Store, *formstore.MemoryKV, models.Submission) {
	t.Helper()
	kv := formstore.NewMemoryKV()
	store := formstore.New(kv, logger.NewTestLogger(t))
	sub, err := store.Create(context.Background(), models.SubmissionTypeContact, map[string]string{"name": "Ravi"})
	require.NoError(t, err)

	h := NewHandler(LoadConfig(config.WorkerConfig{}), store, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC) }
	return h, store, kv, sub
}

func codeOf(t *testing.T, err error) commonerrors.ErrorCode {
	t.Helper()
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	return stdErr.Code
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h, store, _, sub := setup(t)

	out, err := h.Execute(context.Background(), &Input{SubmissionID: sub.ID, Status: "Responded"})

	require.NoError(t, err)
	assert.Equal(t, &Output{
		SubmissionID:   sub.ID,
		PreviousStatus: "new",
		Status:         "responded",
		UpdatedAt:      "2025-03-15T08:00:00Z",
	}, out)

	stored, _ := store.Get(context.Background(), sub.ID)
	assert.Equal(t, models.StatusResponded, stored.Status)
}

func TestHandler_Execute_AnyTransition(t *testing.T) {
	h, store, _, sub := setup(t)

	for _, st := range []string{"responded", "new", "viewed", "viewed"} {
		_, err := h.Execute(context.Background(), &Input{SubmissionID: sub.ID, Status: st})
		require.NoError(t, err, st)
	}
	stored, _ := store.Get(context.Background(), sub.ID)
	assert.Equal(t, models.StatusViewed, stored.Status)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    func(sub models.Submission) *Input
		breakKV  bool
		wantCode commonerrors.ErrorCode
	}{
		{
			name:     "unknown status",
			input:    func(sub models.Submission) *Input { return &Input{SubmissionID: sub.ID, Status: "archived"} },
			wantCode: commonerrors.ErrCodeInvalidStatus,
		},
		{
			name:     "unknown submission",
			input:    func(models.Submission) *Input { return &Input{SubmissionID: "missing", Status: "viewed"} },
			wantCode: commonerrors.ErrCodeSubmissionNotFound,
		},
		{
			name:     "write failure",
			input:    func(sub models.Submission) *Input { return &Input{SubmissionID: sub.ID, Status: "viewed"} },
			breakKV:  true,
			wantCode: commonerrors.ErrCodeStorageWriteFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, kv, sub := setup(t)
			if tt.breakKV {
				kv.FailWrites = errors.New("read-only replica")
			}

			out, err := h.Execute(context.Background(), tt.input(sub))

			assert.Nil(t, out)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, codeOf(t, err))
		})
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	bpmn := commonerrors.ConvertToBPMNError(commonerrors.NewSubmissionNotFoundError("x"))
	assert.Equal(t, "SUBMISSION_NOT_FOUND", bpmn.Code)
	assert.Zero(t, bpmn.Retries)
}

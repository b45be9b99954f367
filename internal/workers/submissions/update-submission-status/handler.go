// internal/workers/submissions/update-submission-status/handler.go
package updatesubmissionstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"swedana-forms/internal/common/camunda"
	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/metrics"
	"swedana-forms/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-submission-status"
)

type StatusUpdater interface {
	Get(ctx context.Context, id string) (models.Submission, bool)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) bool
}

type Handler struct {
	config       *Config
	store        StatusUpdater
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
	jobs         camunda.JobRecorder
	now          func() time.Time
}

func NewHandler(config *Config, store StatusUpdater, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		logger:       l,
		errorHandler: commonerrors.NewErrorHandler(l),
		jobs:         camunda.NopJobRecorder{},
		now:          time.Now,
	}
}

// WithJobRecorder reports job outcomes to r.
func (h *Handler) WithJobRecorder(r camunda.JobRecorder) *Handler {
	h.jobs = r
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	status := "completed"
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		elapsed := time.Since(start)
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
		h.jobs.RecordJobProcessed(context.Background(), TaskType, status)
		h.jobs.RecordJobDuration(context.Background(), TaskType, elapsed, status)
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		status = "failed"
		h.fail(ctx, client, job, commonerrors.NewParseError(err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		status = "failed"
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	status, err := models.ParseSubmissionStatus(input.Status)
	if err != nil {
		return nil, commonerrors.NewInvalidStatusError(input.Status)
	}

	sub, ok := h.store.Get(ctx, input.SubmissionID)
	if !ok {
		return nil, commonerrors.NewSubmissionNotFoundError(input.SubmissionID)
	}

	if !h.store.UpdateStatus(ctx, input.SubmissionID, status) {
		return nil, commonerrors.NewStorageWriteFailedError(
			fmt.Errorf("status of %s was not updated", input.SubmissionID))
	}

	h.logger.Info("submission status updated", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"from":         string(sub.Status),
		"to":           string(status),
	})

	return &Output{
		SubmissionID:   input.SubmissionID,
		PreviousStatus: string(sub.Status),
		Status:         string(status),
		UpdatedAt:      h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := commonerrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// internal/workers/submissions/create-submission/handler.go
package createsubmission

import (
	"context"
	"encoding/json"
	"time"

	"swedana-forms/internal/common/camunda"
	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/metrics"
	"swedana-forms/internal/common/validation"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-submission"
)

// SubmissionCreator is the slice of the store this worker writes through.
type SubmissionCreator interface {
	Create(ctx context.Context, t models.SubmissionType, data map[string]string) (models.Submission, error)
}

type Handler struct {
	config       *Config
	store        SubmissionCreator
	validator    *validation.Validator
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
	jobs         camunda.JobRecorder
}

// NewHandler builds the worker. validator may be nil to accept any payload.
func NewHandler(config *Config, store SubmissionCreator, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		validator:    validator,
		logger:       l,
		errorHandler: commonerrors.NewErrorHandler(l),
		jobs:         camunda.NopJobRecorder{},
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

// Execute validates the payload and appends it to the store.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	t, err := resolveType(input)
	if err != nil {
		return nil, err
	}

	if h.validator != nil {
		if err := h.validator.Validate(t, input.Data); err != nil {
			return nil, err
		}
	}

	sub, err := h.store.Create(ctx, t, input.Data)
	if err != nil {
		return nil, formstore.ToStandardError(err)
	}

	h.logger.Info("submission created", map[string]interface{}{
		"submissionId": sub.ID,
		"type":         string(sub.Type),
	})

	return &Output{
		SubmissionID: sub.ID,
		Type:         string(sub.Type),
		Status:       string(sub.Status),
		CreatedAt:    time.UnixMilli(sub.Timestamp).UTC().Format(time.RFC3339),
	}, nil
}

func resolveType(input *Input) (models.SubmissionType, error) {
	if input.Type != "" {
		t, err := models.ParseSubmissionType(input.Type)
		if err != nil {
			return "", commonerrors.NewInvalidSubmissionTypeError(input.Type)
		}
		return t, nil
	}
	interest := input.Interest
	if interest == "" {
		interest = input.Data["interest"]
	}
	return models.TypeFromInterest(interest), nil
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
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":       job.Key,
		"submissionId": output.SubmissionID,
	})
}

// internal/workers/submissions/send-submission-alert/handler.go
package sendsubmissionalert

import (
	"context"
	"encoding/json"
	"time"

	"swedana-forms/internal/common/camunda"
	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/metrics"
	"swedana-forms/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-submission-alert"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SubmissionReader interface {
	Get(ctx context.Context, id string) (models.Submission, bool)
}

type Handler struct {
	config       *Config
	store        SubmissionReader
	logger       logger.Logger
	sesClient    SESService
	snsClient    SNSService
	errorHandler *commonerrors.ErrorHandler
	jobs         camunda.JobRecorder
	now          func() time.Time
}

// NewHandler wires the alert service. A nil client disables its channel.
func NewHandler(config *Config, store SubmissionReader, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		logger:       l,
		sesClient:    sesClient,
		snsClient:    snsClient,
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

// Execute alerts the operator about a stored submission. A channel failure
// returns the failed output together with a retryable error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sub, ok := h.store.Get(ctx, input.SubmissionID)
	if !ok {
		return nil, commonerrors.NewSubmissionNotFoundError(input.SubmissionID)
	}

	n, err := h.Send(ctx, sub)
	out := &Output{
		NotificationID: n.ID,
		SubmissionID:   n.SubmissionID,
		Channels:       n.Channels,
		Status:         n.Status,
		SentAt:         n.SentAt,
	}
	return out, err
}

// Notify sends the alert for a submission the API has just saved.
func (h *Handler) Notify(ctx context.Context, sub models.Submission) {
	if _, err := h.Send(ctx, sub); err != nil {
		h.logger.Warn("submission alert not delivered", map[string]interface{}{
			"submissionId": sub.ID,
			"error":        err,
		})
	}
}

// Send emails the operator and, for the configured types, texts them.
func (h *Handler) Send(ctx context.Context, sub models.Submission) (models.Notification, error) {
	n := models.Notification{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		Type:         sub.Type,
		Channels:     []string{},
		Status:       StatusDisabled,
		SentAt:       h.now().UTC().Format(time.RFC3339),
	}
	data := templateData(sub)

	if h.config.EmailEnabled && h.config.ToEmail != "" && h.sesClient != nil {
		tmpl, ok := emailTemplates[sub.Type]
		if !ok {
			tmpl = emailTemplates[models.SubmissionTypeContact]
		}
		subject := renderTemplate(tmpl.Subject, data)
		body := renderTemplate(tmpl.Body, data)

		if err := h.sendEmail(ctx, subject, body); err != nil {
			metrics.NotificationsSent.WithLabelValues(ChannelEmail, "failure").Inc()
			h.logger.Error("email send failed", map[string]interface{}{
				"error":        err,
				"submissionId": sub.ID,
			})
			n.Status = StatusFailed
			return n, commonerrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, "success").Inc()
		n.Channels = append(n.Channels, ChannelEmail)
	}

	if h.config.SMSEnabled && h.config.PhoneNumber != "" && h.snsClient != nil && h.config.smsFor(sub.Type) {
		if err := h.sendSMS(ctx, renderTemplate(smsTemplate, data)); err != nil {
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, "failure").Inc()
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":        err,
				"submissionId": sub.ID,
			})
			n.Status = StatusFailed
			return n, commonerrors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		metrics.NotificationsSent.WithLabelValues(ChannelSMS, "success").Inc()
		n.Channels = append(n.Channels, ChannelSMS)
	}

	if len(n.Channels) > 0 {
		n.Status = StatusSent
	}
	h.logger.Info("submission alert processed", map[string]interface{}{
		"submissionId":   sub.ID,
		"notificationId": n.ID,
		"status":         n.Status,
		"channels":       n.Channels,
	})
	return n, nil
}

func (h *Handler) sendEmail(ctx context.Context, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{h.config.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(h.config.PhoneNumber),
		Message:     aws.String(message),
	})
	return err
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

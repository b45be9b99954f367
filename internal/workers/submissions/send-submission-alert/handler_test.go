// internal/workers/submissions/send-submission-alert/handler_test.go
package sendsubmissionalert

import (
	"context"
	"errors"
	"testing"
	"time"

	"swedana-forms/internal/common/config"
	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/metrics"
	"swedana-forms/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         []*ses.SendEmailInput
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.SendEmailFunc == nil {
		return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
	}
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.PublishFunc == nil {
		return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
	}
	return m.PublishFunc(ctx, params, optFns...)
}

type mapStore map[string]models.Submission

func (m mapStore) Get(_ context.Context, id string) (models.Submission, bool) {
	sub, ok := m[id]
	return sub, ok
}

// ==========================
// Test Helper Functions
// ==========================

var sentAt = time.Date(2025, 3, 14, 18, 6, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "forms@swedana.se",
		ToEmail:      "hello@swedana.se",
		PhoneNumber:  "+46701234567",
		SMSTypes:     []models.SubmissionType{models.SubmissionTypeOrder},
		Timeout:      30 * time.Second,
	}
}

func orderSubmission() models.Submission {
	return models.Submission{
		ID:        "1741975509000-abc123def",
		Type:      models.SubmissionTypeOrder,
		Timestamp: time.Date(2025, 3, 14, 18, 5, 9, 0, time.UTC).UnixMilli(),
		Data: map[string]string{
			"name":    "Priya Sharma",
			"email":   "priya@example.com",
			"product": "Sanctuary 2",
		},
		Status: models.StatusNew,
	}
}

func contactSubmission() models.Submission {
	return models.Submission{
		ID:        "1741975510000-xyz789ghi",
		Type:      models.SubmissionTypeContact,
		Timestamp: time.Date(2025, 3, 14, 18, 5, 10, 0, time.UTC).UnixMilli(),
		Data:      map[string]string{"name": "Ravi", "phone": "0701234567", "message": "Do you ship to Malmö?"},
		Status:    models.StatusNew,
	}
}

func newTestHandler(t *testing.T, cfg *Config, sesMock *MockSESService, snsMock *MockSNSService) *Handler {
	t.Helper()
	store := mapStore{}
	for _, sub := range []models.Submission{orderSubmission(), contactSubmission()} {
		store[sub.ID] = sub
	}
	h := NewHandler(cfg, store, sesMock, snsMock, logger.NewTestLogger(t))
	h.now = func() time.Time { return sentAt }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_OrderUsesEmailAndSMS(t *testing.T) {
	sesMock, snsMock := &MockSESService{}, &MockSNSService{}
	h := newTestHandler(t, createTestConfig(), sesMock, snsMock)
	before := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(ChannelSMS, "success"))

	out, err := h.Execute(context.Background(), &Input{SubmissionID: orderSubmission().ID})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	assert.Equal(t, "2025-03-14T18:06:00Z", out.SentAt)
	assert.NotEmpty(t, out.NotificationID)
	assert.Equal(t, orderSubmission().ID, out.SubmissionID)

	require.Len(t, sesMock.calls, 1)
	email := sesMock.calls[0]
	assert.Equal(t, []string{"hello@swedana.se"}, email.Destination.ToAddresses)
	assert.Equal(t, "forms@swedana.se", aws.ToString(email.Source))
	assert.Equal(t, "New order inquiry from Priya Sharma", aws.ToString(email.Message.Subject.Data))
	body := aws.ToString(email.Message.Body.Text.Data)
	assert.Contains(t, body, "ordering Sanctuary 2 (quantity )")
	assert.Contains(t, body, "Email: priya@example.com")
	assert.Contains(t, body, "2025-03-14 18:05 UTC")
	assert.NotContains(t, body, "{{")

	require.Len(t, snsMock.calls, 1)
	assert.Equal(t, "+46701234567", aws.ToString(snsMock.calls[0].PhoneNumber))
	assert.Equal(t, "Swedana: new order from Priya Sharma, submission 1741975509000-abc123def",
		aws.ToString(snsMock.calls[0].Message))

	after := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(ChannelSMS, "success"))
	assert.Equal(t, before+1, after)
}

func TestHandler_Execute_ContactSkipsSMS(t *testing.T) {
	sesMock, snsMock := &MockSESService{}, &MockSNSService{}
	h := newTestHandler(t, createTestConfig(), sesMock, snsMock)

	out, err := h.Execute(context.Background(), &Input{SubmissionID: contactSubmission().ID})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)
	assert.Empty(t, snsMock.calls)
	require.Len(t, sesMock.calls, 1)
	assert.Equal(t, "New message from Ravi", aws.ToString(sesMock.calls[0].Message.Subject.Data))
	assert.Contains(t, aws.ToString(sesMock.calls[0].Message.Body.Text.Data), "Do you ship to Malmö?")
}

func TestHandler_Execute_Disabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		nilSES bool
	}{
		{"both channels off", func(c *Config) { c.EmailEnabled, c.SMSEnabled = false, false }, false},
		{"no recipients", func(c *Config) { c.ToEmail, c.PhoneNumber = "", "" }, false},
		{"email without client, sms off", func(c *Config) { c.SMSEnabled = false }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(cfg)
			sesMock, snsMock := &MockSESService{}, &MockSNSService{}

			var h *Handler
			if tt.nilSES {
				h = NewHandler(cfg, mapStore{orderSubmission().ID: orderSubmission()}, nil, snsMock, logger.NewTestLogger(t))
			} else {
				h = newTestHandler(t, cfg, sesMock, snsMock)
			}

			out, err := h.Execute(context.Background(), &Input{SubmissionID: orderSubmission().ID})

			require.NoError(t, err)
			assert.Equal(t, StatusDisabled, out.Status)
			assert.Empty(t, out.Channels)
			assert.Empty(t, sesMock.calls)
			assert.Empty(t, snsMock.calls)
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_SubmissionNotFound(t *testing.T) {
	h := newTestHandler(t, createTestConfig(), &MockSESService{}, &MockSNSService{})

	out, err := h.Execute(context.Background(), &Input{SubmissionID: "gone"})

	assert.Nil(t, out)
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeSubmissionNotFound, stdErr.Code)
}

func TestHandler_Execute_ChannelFailures(t *testing.T) {
	tests := []struct {
		name        string
		sesErr      error
		snsErr      error
		wantChannel string
		wantSMSCall bool
	}{
		{name: "email failure stops before sms", sesErr: errors.New("MessageRejected"), wantChannel: ChannelEmail},
		{name: "sms failure", snsErr: errors.New("Throttling"), wantChannel: ChannelSMS, wantSMSCall: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sesMock := &MockSESService{}
			if tt.sesErr != nil {
				sesMock.SendEmailFunc = func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					return nil, tt.sesErr
				}
			}
			snsMock := &MockSNSService{}
			if tt.snsErr != nil {
				snsMock.PublishFunc = func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
					return nil, tt.snsErr
				}
			}
			h := newTestHandler(t, createTestConfig(), sesMock, snsMock)

			out, err := h.Execute(context.Background(), &Input{SubmissionID: orderSubmission().ID})

			require.NotNil(t, out)
			assert.Equal(t, StatusFailed, out.Status)
			var stdErr *commonerrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, commonerrors.ErrCodeNotificationSendFailed, stdErr.Code)
			assert.True(t, stdErr.Retryable)
			assert.Equal(t, tt.wantChannel, stdErr.Metadata["channel"])
			assert.Equal(t, tt.wantSMSCall, len(snsMock.calls) == 1)
		})
	}
}

func TestHandler_Notify_SwallowsFailures(t *testing.T) {
	sesMock := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	}
	h := newTestHandler(t, createTestConfig(), sesMock, &MockSNSService{})

	assert.NotPanics(t, func() { h.Notify(context.Background(), orderSubmission()) })
	assert.Len(t, sesMock.calls, 1)
}

// ==========================
// Template / Configuration Tests
// ==========================

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		tmpl string
		data map[string]string
		want string
	}{
		{"Hello {{name}}", map[string]string{"name": "Anna"}, "Hello Anna"},
		{"Hello {{name}}{{missing}}!", map[string]string{"name": "Anna"}, "Hello Anna!"},
		{"{{a}} and {{a}}", map[string]string{"a": "x"}, "x and x"},
		{"unterminated {{oops", nil, "unterminated {{oops"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderTemplate(tt.tmpl, tt.data), tt.tmpl)
	}
}

func TestLoadConfig(t *testing.T) {
	var n config.NotificationConfig
	n.Email.Enabled = true
	n.Email.FromEmail = "forms@swedana.se"
	n.Email.ToEmail = "hello@swedana.se"
	n.SMS.Enabled = true
	n.SMS.PhoneNumber = "+46701234567"
	n.SMS.Types = []string{"order", "Consultation", "newsletter"}

	cfg := LoadConfig(n, config.WorkerConfig{Timeout: 5000})

	assert.True(t, cfg.EmailEnabled)
	assert.Equal(t, "hello@swedana.se", cfg.ToEmail)
	assert.Equal(t, []models.SubmissionType{models.SubmissionTypeOrder, models.SubmissionTypeConsultation}, cfg.SMSTypes)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.smsFor(models.SubmissionTypeOrder))
	assert.False(t, cfg.smsFor(models.SubmissionTypeContact))
}

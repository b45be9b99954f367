// internal/workers/submissions/send-submission-alert/models.go
package sendsubmissionalert

type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	SubmissionID   string   `json:"submissionId"`
	Channels       []string `json:"channels"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

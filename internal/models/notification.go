// internal/models/notification.go
package models

// Notification records one operator alert about a submission.
type Notification struct {
	ID           string         `json:"id"`
	SubmissionID string         `json:"submissionId"`
	Type         SubmissionType `json:"type"`
	Channels     []string       `json:"channels"` // "email", "sms"
	Status       string         `json:"status"`   // "sent", "failed", "disabled"
	SentAt       string         `json:"sentAt"`
}

type NotificationTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

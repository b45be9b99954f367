// internal/workers/submissions/update-submission-status/models.go
package updatesubmissionstatus

type Input struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}

type Output struct {
	SubmissionID   string `json:"submissionId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updatedAt"` // ISO 8601
}

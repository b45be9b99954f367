// internal/workers/submissions/create-submission/models.go
package createsubmission

type Input struct {
	Type     string            `json:"type,omitempty"`
	Interest string            `json:"interest,omitempty"`
	Data     map[string]string `json:"data"`
}

type Output struct {
	SubmissionID string `json:"submissionId"`
	Type         string `json:"submissionType"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"` // ISO 8601
}

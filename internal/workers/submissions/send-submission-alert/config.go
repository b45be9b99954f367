// internal/workers/submissions/send-submission-alert/config.go
package sendsubmissionalert

import (
	"time"

	"swedana-forms/internal/common/config"
	"swedana-forms/internal/models"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	ToEmail      string
	PhoneNumber  string
	// SMSTypes limits text messages to the submission types worth a page.
	SMSTypes []models.SubmissionType
	Timeout  time.Duration
}

func LoadConfig(n config.NotificationConfig, wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		EmailEnabled: n.Email.Enabled,
		SMSEnabled:   n.SMS.Enabled,
		FromEmail:    n.Email.FromEmail,
		ToEmail:      n.Email.ToEmail,
		PhoneNumber:  n.SMS.PhoneNumber,
		Timeout:      30 * time.Second,
	}
	for _, t := range n.SMS.Types {
		if st, err := models.ParseSubmissionType(t); err == nil {
			cfg.SMSTypes = append(cfg.SMSTypes, st)
		}
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return cfg
}

func (c *Config) smsFor(t models.SubmissionType) bool {
	for _, st := range c.SMSTypes {
		if st == t {
			return true
		}
	}
	return false
}

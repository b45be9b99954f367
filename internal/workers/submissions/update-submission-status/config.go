// internal/workers/submissions/update-submission-status/config.go
package updatesubmissionstatus

import (
	"time"

	"swedana-forms/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{Timeout: 10 * time.Second}
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return cfg
}

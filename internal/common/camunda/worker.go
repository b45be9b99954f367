// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"swedana-forms/internal/common/config"
	"swedana-forms/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every submission worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobRecorder receives one outcome per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// NopJobRecorder discards job outcomes.
type NopJobRecorder struct{}

func (NopJobRecorder) RecordJobProcessed(context.Context, string, string)                {}
func (NopJobRecorder) RecordJobDuration(context.Context, string, time.Duration, string) {}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

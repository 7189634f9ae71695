// internal/common/camunda/worker.go
package camunda

import (
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"propoflash/internal/common/config"
	"propoflash/internal/common/logger"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Registration binds a job type to its handler.
type Registration struct {
	TaskType string
	Handler  JobHandler
}

// StartWorkers opens one job worker per enabled registration.
func StartWorkers(client zbc.Client, cfg *config.Config, regs []Registration, log logger.Logger) []worker.JobWorker {
	var workers []worker.JobWorker
	for _, reg := range regs {
		wcfg := config.GetWorkerConfig(cfg, reg.TaskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": reg.TaskType})
			continue
		}

		jw := client.NewJobWorker().
			JobType(reg.TaskType).
			Handler(reg.Handler.Handle).
			MaxJobsActive(wcfg.MaxJobsActive).
			Timeout(config.GetDuration(wcfg.Timeout)).
			Open()
		workers = append(workers, jw)

		log.Info("worker started", map[string]interface{}{
			"taskType":      reg.TaskType,
			"maxJobsActive": wcfg.MaxJobsActive,
			"timeoutMs":     wcfg.Timeout,
		})
	}
	return workers
}

// StopWorkers closes the workers and waits for in-flight jobs.
func StopWorkers(workers []worker.JobWorker, log logger.Logger) {
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	log.Info("workers stopped", map[string]interface{}{"count": len(workers)})
}

// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"drift-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes, fails or throws the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Registration describes one job worker to open.
type Registration struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Handler       JobHandler
}

// Pool owns the open job workers of the process.
type Pool struct {
	client  zbc.Client
	logger  logger.Logger
	workers map[string]worker.JobWorker
}

func NewPool(client zbc.Client, log logger.Logger) *Pool {
	return &Pool{client: client, logger: log, workers: make(map[string]worker.JobWorker)}
}

// Open starts polling for r.TaskType. Opening the same task type twice
// replaces nothing and is ignored.
func (p *Pool) Open(r Registration) {
	if _, ok := p.workers[r.TaskType]; ok {
		p.logger.Warn("worker already open", map[string]interface{}{"taskType": r.TaskType})
		return
	}
	if r.MaxJobsActive <= 0 {
		r.MaxJobsActive = 5
	}

	step := p.client.NewJobWorker().
		JobType(r.TaskType).
		Handler(r.Handler.Handle).
		MaxJobsActive(r.MaxJobsActive)
	if r.Timeout > 0 {
		step = step.Timeout(r.Timeout)
	}
	p.workers[r.TaskType] = step.Open()

	p.logger.Info("worker started", map[string]interface{}{
		"taskType":      r.TaskType,
		"maxJobsActive": r.MaxJobsActive,
	})
}

// TaskTypes lists the open workers.
func (p *Pool) TaskTypes() []string {
	out := make([]string, 0, len(p.workers))
	for t := range p.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker and waits for in-flight handlers.
func (p *Pool) Close() {
	for taskType, w := range p.workers {
		p.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
	p.workers = make(map[string]worker.JobWorker)
}

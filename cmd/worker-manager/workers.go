// cmd/worker-manager/workers.go
package main

import (
	"time"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/config"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/deals"
	"drift-workers/internal/followup"
	"drift-workers/internal/notify"
	"drift-workers/pkg/registry"

	gf "drift-workers/internal/workers/communication/generate-followup"
	srd "drift-workers/internal/workers/communication/send-risk-digest"
	cdr "drift-workers/internal/workers/risk/compute-deal-risk"
	rpr "drift-workers/internal/workers/risk/recompute-pipeline-risk"
)

type workerDeps struct {
	deals     *deals.Service
	generator followup.Generator
	digest    *notify.DigestSender // nil when SES is disabled
	metrics   camunda.JobMetrics
}

// handlerTimeout is the per-job deadline: the configured worker timeout when
// the task type has its own section, else the handler's default.
func handlerTimeout(cfg *config.Config, taskType string, def time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return def
}

func registration(cfg *config.Config, acts *registry.ActivityRegistry, taskType string, h camunda.JobHandler) camunda.Registration {
	wcfg := config.GetWorkerConfig(cfg, taskType)
	timeout := config.GetDuration(cfg.Camunda.Timeout)
	if a, ok := acts.Find(taskType); ok {
		timeout = a.TimeoutOr(timeout)
	}
	return camunda.Registration{
		TaskType:      taskType,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       timeout,
		Handler:       h,
	}
}

func registerWorkers(pool *camunda.Pool, cfg *config.Config, acts *registry.ActivityRegistry, deps workerDeps, log logger.Logger) {
	// --- Risk Workers (2) ---
	if config.IsWorkerEnabled(cfg, cdr.TaskType) {
		handler := cdr.NewHandler(
			&cdr.Config{Timeout: handlerTimeout(cfg, cdr.TaskType, cdr.LoadConfig().Timeout)},
			deps.deals, acts, deps.metrics, log,
		)
		pool.Open(registration(cfg, acts, cdr.TaskType, handler))
	}

	if config.IsWorkerEnabled(cfg, rpr.TaskType) {
		handler := rpr.NewHandler(
			&rpr.Config{Timeout: handlerTimeout(cfg, rpr.TaskType, rpr.LoadConfig().Timeout)},
			deps.deals, acts, deps.metrics, log,
		)
		pool.Open(registration(cfg, acts, rpr.TaskType, handler))
	}

	// --- Communication Workers (2) ---
	if config.IsWorkerEnabled(cfg, gf.TaskType) {
		handler := gf.NewHandler(
			&gf.Config{Timeout: handlerTimeout(cfg, gf.TaskType, gf.LoadConfig().Timeout)},
			deps.deals, deps.generator, acts, deps.metrics, log,
		)
		pool.Open(registration(cfg, acts, gf.TaskType, handler))
	}

	if config.IsWorkerEnabled(cfg, srd.TaskType) {
		if deps.digest == nil {
			log.Info("worker disabled", map[string]interface{}{"taskType": srd.TaskType, "reason": "ses disabled"})
			return
		}
		handler := srd.NewHandler(
			&srd.Config{Timeout: handlerTimeout(cfg, srd.TaskType, srd.LoadConfig().Timeout)},
			deps.digest, deps.metrics, log,
		)
		pool.Open(registration(cfg, acts, srd.TaskType, handler))
	}
}

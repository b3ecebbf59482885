// internal/workers/risk/recompute-pipeline-risk/handler.go
package recomputepipelinerisk

import (
	"context"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recompute-pipeline-risk"
)

// Pipeline is the part of the deal service this worker drives.
type Pipeline interface {
	ApplyWeighting(ctx context.Context, w risk.WeightingProfile) (models.UserProfile, []models.Deal, error)
}

type Handler struct {
	config     *Config
	pipeline   Pipeline
	validator  camunda.InputValidator
	metrics    camunda.JobMetrics
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, pipeline Pipeline, validator camunda.InputValidator, metrics camunda.JobMetrics, log logger.Logger) *Handler {
	if metrics == nil {
		metrics = camunda.NopMetrics()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		pipeline:   pipeline,
		validator:  validator,
		metrics:    metrics,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := h.metrics.JobStarted(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(TaskType, job.Variables, h.validator, &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		done(string(errors.CodeOf(err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		done(string(errors.CodeOf(err)))
		return
	}

	if err := camunda.Complete(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err.Error()})
	}
	done("")
}

// execute keeps the session identity and swaps only the weighting fields.
// Counts come from the deal set of this pass, not a later read.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}

	_, scored, err := h.pipeline.ApplyWeighting(ctx, input.Profile)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	for _, d := range scored {
		out.DealsScored++
		switch d.RiskLevel {
		case risk.LevelHigh:
			out.High++
			out.RevenueAtRisk += d.Amount
		case risk.LevelMedium:
			out.Medium++
		default:
			out.Low++
		}
	}

	h.logger.Info("pipeline rescored", map[string]interface{}{
		"deals":  out.DealsScored,
		"high":   out.High,
		"medium": out.Medium,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

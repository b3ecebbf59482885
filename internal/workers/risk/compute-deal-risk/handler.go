// internal/workers/risk/compute-deal-risk/handler.go
package computedealrisk

import (
	"context"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/validation"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "compute-deal-risk"
)

// ProfileSource supplies the session profile used when a job carries none.
type ProfileSource interface {
	Profile() models.UserProfile
}

type Handler struct {
	config     *Config
	profiles   ProfileSource
	validator  camunda.InputValidator
	metrics    camunda.JobMetrics
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, profiles ProfileSource, validator camunda.InputValidator, metrics camunda.JobMetrics, log logger.Logger) *Handler {
	if metrics == nil {
		metrics = camunda.NopMetrics()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		profiles:   profiles,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}

	deal := input.Deal.Clone()
	deal.Normalize()

	weighting, err := h.weighting(input.Profile)
	if err != nil {
		return nil, err
	}

	a := risk.Compute(deal.RiskInput(), weighting)
	h.logger.Debug("deal scored", map[string]interface{}{
		"dealId":    deal.ID,
		"riskScore": a.Score,
		"riskLevel": string(a.Level),
	})

	return &Output{
		RiskScore:   a.Score,
		RiskLevel:   string(a.Level),
		RiskFactors: a.Factors,
	}, nil
}

// weighting resolves the job's profile. A supplied profile is bounds-checked
// the same way settings updates are.
func (h *Handler) weighting(override *risk.WeightingProfile) (risk.WeightingProfile, error) {
	if override == nil {
		if h.profiles == nil {
			return risk.DefaultProfile(), nil
		}
		return h.profiles.Profile().Weighting(), nil
	}

	var p models.UserProfile
	p.SetWeighting(*override)
	if res := validation.ValidateStruct(p); !res.Valid {
		return risk.WeightingProfile{}, errors.NewProfileValidationError(res.Summary())
	}
	return *override, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

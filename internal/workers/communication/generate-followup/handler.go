// internal/workers/communication/generate-followup/handler.go
package generatefollowup

import (
	"context"
	"strings"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/validation"
	"drift-workers/internal/followup"
	"drift-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-followup"
)

// DealStore reads deals and stores drafts on them.
type DealStore interface {
	Deal(id string) (models.Deal, error)
	Preferences() models.AgentPreferences
	SetFollowUp(ctx context.Context, id, draft string) (models.Deal, error)
}

type Handler struct {
	config     *Config
	store      DealStore
	generator  followup.Generator
	validator  camunda.InputValidator
	metrics    camunda.JobMetrics
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, store DealStore, generator followup.Generator, validator camunda.InputValidator, metrics camunda.JobMetrics, log logger.Logger) *Handler {
	if metrics == nil {
		metrics = camunda.NopMetrics()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
		generator:  generator,
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
	id := strings.TrimSpace(input.DealID)
	if id == "" {
		return nil, errors.NewDealValidationError("dealId is required")
	}

	deal, err := h.store.Deal(id)
	if err != nil {
		return nil, err
	}

	prefs := h.store.Preferences()
	if input.Preferences != nil {
		if res := validation.ValidateStruct(*input.Preferences); !res.Valid {
			return nil, errors.NewBusinessRuleError("Agent preferences validation failed", res.Summary())
		}
		prefs = *input.Preferences
	}

	draft, err := h.generator.Generate(ctx, deal, prefs)
	if err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewFollowUpGenerationError(err)
	}

	if _, err := h.store.SetFollowUp(ctx, id, draft); err != nil {
		return nil, err
	}

	h.logger.Info("follow-up drafted", map[string]interface{}{
		"dealId": id,
		"chars":  len(draft),
	})
	return &Output{DealID: id, Draft: draft}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

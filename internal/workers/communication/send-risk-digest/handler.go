// internal/workers/communication/send-risk-digest/handler.go
package sendriskdigest

import (
	"context"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-risk-digest"
)

// DigestSender builds and delivers the digest.
type DigestSender interface {
	Send(ctx context.Context) (models.Notification, error)
}

type Handler struct {
	config     *Config
	sender     DigestSender
	metrics    camunda.JobMetrics
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, sender DigestSender, metrics camunda.JobMetrics, log logger.Logger) *Handler {
	if metrics == nil {
		metrics = camunda.NopMetrics()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sender:     sender,
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

	output, err := h.execute(ctx, &Input{})
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

// execute returns an error for failed deliveries so the job is retried;
// disabled and skipped digests complete normally.
func (h *Handler) execute(ctx context.Context, _ *Input) (*Output, error) {
	n, err := h.sender.Send(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{
		NotificationID: n.ID,
		Status:         n.Status,
		SentAt:         n.SentAt,
		Recipient:      n.Recipient,
		MessageID:      n.MessageID,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

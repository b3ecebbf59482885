// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler fails or throws Zeebe jobs from standardized errors.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Decision is what HandleJobError did with a job.
type Decision string

const (
	DecisionRetry Decision = "retry"
	DecisionThrow Decision = "throw"
)

// Decide returns whether err should be retried and with how many retries,
// given the job's remaining retries.
func Decide(err error, jobRetries int32) (Decision, int) {
	stdErr := normalize(err)
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable || retries == 0 || jobRetries <= 0 {
		return DecisionThrow, 0
	}
	if int(jobRetries) < retries {
		retries = int(jobRetries)
	}
	return DecisionRetry, retries
}

// HandleJobError fails the job with retries for retryable codes and throws a
// BPMN error otherwise.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Decision {
	stdErr := normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	decision, retries := Decide(stdErr, job.Retries)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"decision":         string(decision),
		"retries":          retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})

	varsJSON, marshalErr := json.Marshal(bpmnErr.ToErrorVariables())

	if decision == DecisionRetry {
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(int32(retries)).
			ErrorMessage(bpmnErr.Message)
		if marshalErr == nil {
			if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
				_, _ = withVars.Send(ctx)
				return decision
			}
		}
		_, _ = cmd.Send(ctx)
		return decision
	}

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)
	if marshalErr == nil {
		if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			_, _ = withVars.Send(ctx)
			return decision
		}
	}
	_, _ = cmd.Send(ctx)
	return decision
}

func normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drift-workers/internal/common/errors"
	"drift-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// InputValidator checks job variables against the registered input schema.
type InputValidator interface {
	ValidateInput(taskType string, vars interface{}) (*validation.ValidationResult, error)
}

// JobMetrics records one job from start to outcome. An empty error code
// means the job completed.
type JobMetrics interface {
	JobStarted(taskType string) func(errorCode string)
}

type nopMetrics struct{}

func (nopMetrics) JobStarted(string) func(string) { return func(string) {} }

// NopMetrics discards job metrics.
func NopMetrics() JobMetrics { return nopMetrics{} }

// OTelRecorder is the OpenTelemetry side of job metrics.
type OTelRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string)
}

type fanout struct {
	prom JobMetrics
	otel OTelRecorder
}

// Instruments records jobs to both Prometheus collectors and OTel
// instruments. Either may be nil.
func Instruments(prom JobMetrics, otel OTelRecorder) JobMetrics {
	if prom == nil {
		prom = NopMetrics()
	}
	return &fanout{prom: prom, otel: otel}
}

func (f *fanout) JobStarted(taskType string) func(string) {
	start := time.Now()
	done := f.prom.JobStarted(taskType)
	return func(errorCode string) {
		done(errorCode)
		if f.otel == nil {
			return
		}
		status := "completed"
		if errorCode != "" {
			status = "failed"
		}
		ctx := context.Background()
		f.otel.RecordJobProcessed(ctx, taskType, status)
		f.otel.RecordJobDuration(ctx, taskType, time.Since(start), status)
	}
}

// DecodeVariables validates raw against the schema of taskType when val is
// set, then decodes it into v.
func DecodeVariables(taskType, raw string, val InputValidator, v interface{}) error {
	if raw == "" {
		raw = "{}"
	}
	if val != nil {
		var doc interface{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return errors.NewParseError("job variables", err)
		}
		res, err := val.ValidateInput(taskType, doc)
		if err != nil {
			return errors.NewInternalError(err)
		}
		if !res.Valid {
			return errors.NewBusinessRuleError("Job variables failed schema validation", res.Summary()).
				WithMetadata("taskType", taskType)
		}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.NewParseError("job variables", err)
	}
	return nil
}

// Complete sends the job result. Errors are returned for logging only.
func Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}

// cmd/worker-manager/services.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	awsclient "drift-workers/internal/common/aws"
	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/config"
	"drift-workers/internal/common/database"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/metrics"
	"drift-workers/internal/common/observability"
	"drift-workers/internal/deals"
	"drift-workers/internal/followup"
	"drift-workers/internal/httpapi"
	"drift-workers/internal/models"
	"drift-workers/internal/notify"
	sendriskdigest "drift-workers/internal/workers/communication/send-risk-digest"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		log.Warn(operationName+" failed, retrying...", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s interrupted: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// infra holds the optional backing stores. Either field may be nil.
type infra struct {
	pg    *database.PostgresClient
	redis *database.RedisClient
}

func (i *infra) Close() {
	if i.pg != nil {
		_ = i.pg.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func connectInfra(ctx context.Context, cfg *config.Config, log logger.Logger) (*infra, error) {
	out := &infra{}

	if cfg.Database.Postgres.Enabled {
		err := retryWithBackoff(ctx, func() error {
			var err error
			out.pg, err = database.ConnectPostgres(ctx, cfg.Database.Postgres, 5*time.Second)
			return err
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		log.Info("PostgreSQL connected successfully", nil)
	}

	if cfg.Database.Redis.Enabled {
		out.redis = database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(ctx, func() error {
			return out.redis.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			out.Close()
			return nil, err
		}
		log.Info("Redis connected successfully", nil)
	}
	return out, nil
}

func readinessChecks(i *infra, zeebe *camunda.Client) []httpapi.Check {
	var checks []httpapi.Check
	if i.pg != nil {
		checks = append(checks, httpapi.Check{Name: "postgres", Fn: i.pg.Ping})
	}
	if i.redis != nil {
		checks = append(checks, httpapi.Check{Name: "redis", Fn: i.redis.Ping})
	}
	if zeebe != nil {
		checks = append(checks, httpapi.Check{Name: "zeebe", Fn: zeebe.HealthCheck})
	}
	return checks
}

// buildDealService creates the session and loads the initial deal set from
// Postgres when enabled, otherwise from the JSON seed.
func buildDealService(ctx context.Context, cfg *config.Config, i *infra, m *metrics.Metrics, obs *observability.Observability, log logger.Logger) (*deals.Service, error) {
	opts := []deals.Option{
		deals.WithLogger(log.WithFields(map[string]interface{}{"component": "deals"})),
		deals.WithTracer(observability.Tracer("deals")),
		deals.WithRecorder(m),
		deals.WithListener(deals.ListenerFunc(func(ctx context.Context, changes []deals.Change) {
			if len(changes) > 0 {
				obs.RecordRescore(ctx, string(changes[0].Trigger), len(changes))
			}
		})),
	}
	if i.redis != nil {
		sessionID := uuid.NewString()
		ttl := time.Duration(cfg.Session.TTL) * time.Minute
		opts = append(opts, deals.WithSessionCache(deals.NewRedisSessionCache(i.redis, cfg.Session.KeyPrefix, sessionID, ttl)))
		log.Info("Session cache enabled", map[string]interface{}{"sessionId": sessionID, "ttl": ttl.String()})
	}

	svc := deals.NewService(models.DefaultUserProfile(cfg.Risk.Profile()), opts...)

	var src deals.Source = deals.NewFileSource(cfg.Seed.DealsPath)
	if i.pg != nil {
		src = deals.NewPostgresSource(i.pg.DB, "", 0, 0, log)
	}
	if err := svc.LoadFrom(ctx, src); err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	return svc, nil
}

// buildGenerator returns the Gemini generator when an API key is set, with the
// template generator as fallback if configured; otherwise the template alone.
func buildGenerator(ctx context.Context, cfg *config.Config, log logger.Logger) (followup.Generator, error) {
	template := followup.NewTemplateGenerator(nil)
	g := cfg.Integrations.Gemini
	if g.APIKey == "" {
		log.Info("No Gemini API key, using template follow-ups", nil)
		return template, nil
	}

	client, err := followup.NewGeminiClient(ctx, g.APIKey)
	if err != nil {
		if g.FallbackTemplate {
			log.Warn("Gemini unavailable, using template follow-ups", map[string]interface{}{"error": err.Error()})
			return template, nil
		}
		return nil, err
	}

	opts := followup.GeminiOptions{
		Model:       g.Model,
		Temperature: g.Temperature,
		Timeout:     config.GetDuration(g.Timeout),
		Logger:      log.WithFields(map[string]interface{}{"component": "gemini"}),
	}
	if g.FallbackTemplate {
		opts.Fallback = template
	}
	return followup.NewGeminiGenerator(client.Models, opts), nil
}

type notifiers struct {
	digest    *notify.DigestSender
	scheduler *notify.Scheduler
}

// buildNotifiers wires SNS alerts as a deal listener and the SES digest with
// its cron schedule. Disabled integrations leave the fields nil.
func buildNotifiers(ctx context.Context, cfg *config.Config, svc *deals.Service, m *metrics.Metrics, log logger.Logger) (notifiers, error) {
	var out notifiers
	aws := cfg.Integrations.AWS

	if aws.SNS.Enabled && cfg.Notifications.AlertsEnabled {
		sns, err := awsclient.NewSNSClient(ctx, aws.Region, aws.SNS.AlertTopicARN)
		if err != nil {
			return out, fmt.Errorf("init sns: %w", err)
		}
		svc.AddListener(notify.NewAlertPublisher(sns, log, notify.WithAlertRecorder(m)))
		log.Info("High-risk alerts enabled", map[string]interface{}{"topic": aws.SNS.AlertTopicARN})
	}

	if !aws.SES.Enabled {
		return out, nil
	}
	ses, err := awsclient.NewSESClient(ctx, aws.Region, aws.SES.FromEmail)
	if err != nil {
		return out, fmt.Errorf("init ses: %w", err)
	}
	out.digest = notify.NewDigestSender(ses, svc, log,
		notify.WithDigestRecorder(m),
		notify.WithRecipient(cfg.Notifications.DigestRecipient),
	)

	timeout := sendriskdigest.LoadConfig().Timeout
	out.scheduler, err = notify.NewScheduler(cfg.Notifications.DigestSchedule, out.digest, timeout, log)
	if err != nil {
		return out, err
	}
	return out, nil
}

// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"drift-workers/internal/common/camunda"
	"drift-workers/internal/common/config"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/common/metrics"
	"drift-workers/internal/common/observability"
	"drift-workers/internal/httpapi"
	"drift-workers/pkg/registry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	bootstrap := logger.New("info", "console")
	defer bootstrap.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	log, err := logger.NewFromOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		bootstrap.Fatal("logger init failed", zap.Error(err))
	}
	log = log.WithFields(map[string]interface{}{
		"service":     cfg.App.Name,
		"environment": cfg.App.Environment,
	})
	if config.LoadedEnvFile != "" {
		log.Debug("Loaded env file", map[string]interface{}{"path": config.LoadedEnvFile})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Worker manager failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("Worker manager stopped", nil)
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("Starting worker manager...", map[string]interface{}{"version": cfg.App.Version})

	// --- Metrics & Tracing ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	obs, err := observability.New(cfg.App.Name, reg)
	if err != nil {
		return fmt.Errorf("init otel metrics: %w", err)
	}
	tp, err := observability.InitTracing(observability.TracingOptions{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// --- Deal session ---
	infra, err := connectInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := buildDealService(ctx, cfg, infra, m, obs, log)
	if err != nil {
		return err
	}

	generator, err := buildGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}

	notifiers, err := buildNotifiers(ctx, cfg, svc, m, log)
	if err != nil {
		return err
	}
	if notifiers.scheduler != nil {
		notifiers.scheduler.Start()
	}

	// --- Zeebe workers ---
	acts, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("load activity registry: %w", err)
	}

	var (
		zeebe *camunda.Client
		pool  *camunda.Pool
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
		if err != nil {
			return fmt.Errorf("connect zeebe: %w", err)
		}
		log.Info("Zeebe client connected successfully", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

		pool = camunda.NewPool(zeebe.Zeebe(), log)
		registerWorkers(pool, cfg, acts, workerDeps{
			deals:     svc,
			generator: generator,
			digest:    notifiers.digest,
			metrics:   camunda.Instruments(m, obs),
		}, log)
		log.Info("Workers registered", map[string]interface{}{"taskTypes": pool.TaskTypes()})
	} else {
		log.Info("Camunda disabled, no job workers started", nil)
	}

	// --- HTTP API ---
	api := httpapi.New(httpapi.Options{
		Deals:     svc,
		Generator: generator,
		Gatherer:  reg,
		Checks:    readinessChecks(infra, zeebe),
		Logger:    log,
		Tracer:    observability.Tracer("httpapi"),
	})
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping workers...", nil)
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if notifiers.scheduler != nil {
		if err := notifiers.scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Digest scheduler did not stop cleanly", map[string]interface{}{"error": err.Error()})
		}
	}
	if pool != nil {
		pool.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	return runErr
}

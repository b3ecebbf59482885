// internal/notify/scheduler.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
)

// DigestRunner sends one digest; *DigestSender satisfies it.
type DigestRunner interface {
	Send(ctx context.Context) (models.Notification, error)
}

// Scheduler runs the digest on a five-field cron schedule. A run still in
// progress when the next one fires makes the next one skip.
type Scheduler struct {
	cron    *cron.Cron
	runner  DigestRunner
	spec    string
	timeout time.Duration
	logger  logger.Logger
}

func NewScheduler(spec string, runner DigestRunner, timeout time.Duration, log logger.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Scheduler{
		runner:  runner,
		spec:    spec,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "digest-scheduler"}),
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule digest: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Digest scheduler started", map[string]interface{}{"schedule": s.spec})
}

// Stop stops scheduling and waits for a running digest or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	sched, _ := cron.ParseStandard(s.spec)
	return sched.Next(now)
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.runner.Send(ctx)
	if err != nil {
		s.logger.Error("Scheduled digest failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("Scheduled digest finished", map[string]interface{}{
		"notificationId": n.ID,
		"status":         n.Status,
	})
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"wastebank-backend/internal/config"
	"wastebank-backend/internal/health"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/metrics"
	"wastebank-backend/internal/repository"
)

const (
	JobEvictRateLimiters = "evict-rate-limiters"
	JobReconcileLedger   = "reconcile-ledger"
	JobCheckHealth       = "check-health"
	JobAll               = "all"
)

// Evicter drops idle rate limiter state. Only the in-process limiter has any.
type Evicter interface {
	Evict(idleTTL time.Duration) int
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store   *repository.Store
	limiter Evicter
	health  *health.Checker
	config  *config.Config
	timeout time.Duration
}

// NewJobRunner creates a job runner. limiter and checker may be nil when
// the corresponding component is not in use.
func NewJobRunner(store *repository.Store, limiter Evicter, checker *health.Checker, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:   store,
		limiter: limiter,
		health:  checker,
		config:  cfg,
		timeout: 5 * time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and metrics
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		metrics.RecordJobRun(jobName, time.Since(start), err == nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}

// Run executes one job by name (for manual execution).
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobEvictRateLimiters:
		return jr.runWithRecovery("EvictRateLimiters", jr.evictRateLimiters)
	case JobReconcileLedger:
		return jr.runWithRecovery("ReconcileLedger", func(ctx context.Context) error {
			_, err := jr.reconcileLedger(ctx)
			return err
		})
	case JobCheckHealth:
		return jr.runWithRecovery("CheckHealth", jr.checkHealth)
	case JobAll:
		var firstErr error
		for _, job := range []string{JobEvictRateLimiters, JobReconcileLedger, JobCheckHealth} {
			if err := jr.Run(job); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return fmt.Errorf("unknown job %q", name)
}

// EvictRateLimiters, ReconcileLedger and CheckHealth are the cron entry points.

func (jr *JobRunner) EvictRateLimiters() { _ = jr.Run(JobEvictRateLimiters) }

func (jr *JobRunner) ReconcileLedger() { _ = jr.Run(JobReconcileLedger) }

func (jr *JobRunner) CheckHealth() { _ = jr.Run(JobCheckHealth) }

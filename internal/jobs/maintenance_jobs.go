package jobs

import (
	"context"

	"wastebank-backend/internal/config"
	"wastebank-backend/internal/logger"
)

// evictRateLimiters drops login limiter buckets idle for longer than the
// configured TTL. A no-op for the Redis backend, where keys expire on their own.
func (jr *JobRunner) evictRateLimiters(ctx context.Context) error {
	if jr.limiter == nil {
		logger.Debug("No in-process rate limiter, skipping eviction")
		return nil
	}
	idleTTL, err := config.ParseDuration(jr.config.RateLimit.IdleTTL)
	if err != nil {
		return err
	}
	removed := jr.limiter.Evict(idleTTL)
	logger.Info("Evicted idle rate limiter buckets", "removed", removed, "idle_ttl", idleTTL)
	return nil
}

func (jr *JobRunner) checkHealth(ctx context.Context) error {
	if jr.health == nil {
		return nil
	}
	report := jr.health.Check(ctx)
	logger.Debug("Health check", "status", report.Status, "database", report.Database)
	return nil
}

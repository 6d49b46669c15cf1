package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	pingTimeout = 3 * time.Second
)

type Report struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Checker pings the store and mirrors the result into the gRPC health
// service so that load balancers and the HTTP endpoint agree.
type Checker struct {
	store  repository.HealthChecker
	server *health.Server
}

func NewChecker(store repository.HealthChecker, server *health.Server) *Checker {
	return &Checker{store: store, server: server}
}

func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	report := Report{Status: StatusOK, Database: "up", CheckedAt: time.Now().UTC()}
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.store.Ping(ctx); err != nil {
		logger.Warn("Store health check failed", "error", err)
		report.Status = StatusDegraded
		report.Database = "down"
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	if c.server != nil {
		c.server.SetServingStatus("", status)
	}
	return report
}

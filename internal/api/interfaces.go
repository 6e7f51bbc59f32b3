package api

import (
	"context"

	"github.com/persistorai/trail/internal/domain"
)

// VersionService is the service surface used by the version, limits and
// sweep handlers.
type VersionService = domain.VersionService

// SweepEnqueuer queues background sweeps.
type SweepEnqueuer = domain.SweepEnqueuer

// HealthChecker reports database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

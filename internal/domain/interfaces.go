// Package domain defines the canonical service interfaces shared by the API
// layer and the CLI wiring. Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/trail/internal/models"
	"github.com/persistorai/trail/internal/retention"
)

// VersionService defines version recording, history and retention operations.
type VersionService interface {
	// Record appends a version and enforces retention for its item. When
	// pruning fails the committed version is still returned, together with
	// an error wrapping models.ErrPruneFailed.
	Record(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error)
	ListVersions(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error)
	Enforce(ctx context.Context, itemType, itemID string) (retention.Result, error)
	Sweep(ctx context.Context, itemType string) (*models.SweepResult, error)
	Limits(itemType string) retention.Effective
}

// SweepEnqueuer queues background sweeps of an item type.
type SweepEnqueuer interface {
	// Enqueue reports false when the sweep was dropped because the queue is full.
	Enqueue(itemType string) bool
}

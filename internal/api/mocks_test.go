package api_test

import (
	"context"
	"errors"
	"sync"

	"github.com/persistorai/trail/internal/api"
	"github.com/persistorai/trail/internal/models"
	"github.com/persistorai/trail/internal/retention"
)

var (
	_ api.VersionService = (*mockVersionService)(nil)
	_ api.SweepEnqueuer  = (*mockQueue)(nil)
	_ api.HealthChecker  = (*mockDB)(nil)
)

// mockVersionService implements api.VersionService for testing.
type mockVersionService struct {
	recordFn  func(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error)
	listFn    func(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error)
	enforceFn func(ctx context.Context, itemType, itemID string) (retention.Result, error)
	sweepFn   func(ctx context.Context, itemType string) (*models.SweepResult, error)
	settings  retention.Settings
}

func (m *mockVersionService) Record(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error) {
	return m.recordFn(ctx, req)
}

func (m *mockVersionService) ListVersions(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error) {
	return m.listFn(ctx, itemType, itemID, limit, offset)
}

func (m *mockVersionService) Enforce(ctx context.Context, itemType, itemID string) (retention.Result, error) {
	return m.enforceFn(ctx, itemType, itemID)
}

func (m *mockVersionService) Sweep(ctx context.Context, itemType string) (*models.SweepResult, error) {
	return m.sweepFn(ctx, itemType)
}

func (m *mockVersionService) Limits(itemType string) retention.Effective {
	return m.settings.Resolve(itemType)
}

// mockQueue records enqueued item types.
type mockQueue struct {
	mu     sync.Mutex
	full   bool
	queued []string
}

func (m *mockQueue) Enqueue(itemType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.full {
		return false
	}

	m.queued = append(m.queued, itemType)

	return true
}

// mockDB implements api.HealthChecker.
type mockDB struct {
	err error
}

func (m *mockDB) HealthCheck(_ context.Context) error { return m.err }

var errBoom = errors.New("boom")

package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/models"
	"github.com/persistorai/trail/internal/retention"
)

// mockVersionStore records calls and returns configured responses.
type mockVersionStore struct {
	mu    sync.Mutex
	calls []string

	appendVersion    func(ctx context.Context, req *models.CreateVersionRequest) (*models.Version, error)
	listVersionsPage func(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error)
	listItemIDs      func(ctx context.Context, itemType string) ([]string, error)
	listItemTypes    func(ctx context.Context) ([]string, error)
}

func (m *mockVersionStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockVersionStore) AppendVersion(ctx context.Context, req *models.CreateVersionRequest) (*models.Version, error) {
	m.record("AppendVersion")
	return m.appendVersion(ctx, req)
}

func (m *mockVersionStore) ListVersionsPage(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error) {
	m.record("ListVersionsPage")
	return m.listVersionsPage(ctx, itemType, itemID, limit, offset)
}

func (m *mockVersionStore) ListItemIDs(ctx context.Context, itemType string) ([]string, error) {
	m.record("ListItemIDs")
	return m.listItemIDs(ctx, itemType)
}

func (m *mockVersionStore) ListItemTypes(ctx context.Context) ([]string, error) {
	m.record("ListItemTypes")
	return m.listItemTypes(ctx)
}

func (m *mockVersionStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// enforceCall captures one Enforce invocation.
type enforceCall struct {
	settings retention.Settings
	itemType string
	itemID   string
}

// mockEnforcer records Enforce calls and returns a configured response.
type mockEnforcer struct {
	mu    sync.Mutex
	calls []enforceCall

	enforce func(ctx context.Context, itemType, itemID string) (retention.Result, error)
}

func (m *mockEnforcer) Enforce(ctx context.Context, settings retention.Settings, itemType, itemID string) (retention.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, enforceCall{settings: settings, itemType: itemType, itemID: itemID})
	m.mu.Unlock()

	if m.enforce == nil {
		return retention.Result{}, nil
	}

	return m.enforce(ctx, itemType, itemID)
}

func (m *mockEnforcer) getCalls() []enforceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]enforceCall(nil), m.calls...)
}

// mockSweeper records sweeps.
type mockSweeper struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (m *mockSweeper) Sweep(_ context.Context, itemType string) (*models.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, itemType)
	if m.err != nil {
		return nil, m.err
	}
	return &models.SweepResult{ItemType: itemType}, nil
}

func (m *mockSweeper) getTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.types...)
}

// mockQueue records enqueued item types.
type mockQueue struct {
	mu     sync.Mutex
	queued []string
}

func (m *mockQueue) Enqueue(itemType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, itemType)
	return true
}

func (m *mockQueue) getQueued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queued...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

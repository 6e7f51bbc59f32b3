// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/trail/internal/domain"
	"github.com/persistorai/trail/internal/metrics"
	"github.com/persistorai/trail/internal/models"
	"github.com/persistorai/trail/internal/retention"
)

// VersionStore is the data-access interface VersionService depends on.
type VersionStore interface {
	AppendVersion(ctx context.Context, req *models.CreateVersionRequest) (*models.Version, error)
	ListVersionsPage(ctx context.Context, itemType, itemID string, limit, offset int) ([]models.Version, bool, error)
	ListItemIDs(ctx context.Context, itemType string) ([]string, error)
	ListItemTypes(ctx context.Context) ([]string, error)
}

// Enforcer applies retention settings to one item.
type Enforcer interface {
	Enforce(ctx context.Context, settings retention.Settings, itemType, itemID string) (retention.Result, error)
}

// Compile-time check: *VersionService must satisfy domain.VersionService.
var _ domain.VersionService = (*VersionService)(nil)

// VersionService records versions and keeps each item within its retention
// limits. Settings can be swapped at runtime; every enforcement uses the
// snapshot current when it starts.
type VersionService struct {
	store        VersionStore
	cleaner      Enforcer
	settings     atomic.Pointer[retention.Settings]
	sweepWorkers int
	log          *logrus.Logger
}

// NewVersionService creates a VersionService. sweepWorkers bounds how many
// items a sweep enforces concurrently.
func NewVersionService(
	store VersionStore, cleaner Enforcer, settings retention.Settings, sweepWorkers int, log *logrus.Logger,
) *VersionService {
	if sweepWorkers < 1 {
		sweepWorkers = 1
	}

	s := &VersionService{store: store, cleaner: cleaner, sweepWorkers: sweepWorkers, log: log}
	s.settings.Store(&settings)

	return s
}

// Settings returns the current retention settings.
func (s *VersionService) Settings() retention.Settings {
	return *s.settings.Load()
}

// SetSettings replaces the retention settings used by later enforcements.
func (s *VersionService) SetSettings(settings retention.Settings) {
	s.settings.Store(&settings)
}

// Record validates and appends a version, then prunes its item.
func (s *VersionService) Record(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error) {
	req.Normalize()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	v, err := s.store.AppendVersion(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("recording version: %w", err)
	}

	metrics.VersionsRecorded.WithLabelValues(v.ItemType, string(v.Event)).Inc()

	if _, err := s.cleaner.Enforce(ctx, s.Settings(), v.ItemType, v.ItemID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"item_type":  v.ItemType,
			"item_id":    v.ItemID,
			"version_id": v.ID,
		}).Warn("versions.record: pruning failed")

		return v, err
	}

	return v, nil
}

// ListVersions returns one page of an item's history, newest first (pass-through).
func (s *VersionService) ListVersions(
	ctx context.Context, itemType, itemID string, limit, offset int,
) ([]models.Version, bool, error) {
	return s.store.ListVersionsPage(ctx, itemType, itemID, limit, offset)
}

// Enforce re-runs retention for one item with the current settings.
func (s *VersionService) Enforce(ctx context.Context, itemType, itemID string) (retention.Result, error) {
	if itemType == "" {
		return retention.Result{}, models.ErrMissingItemType
	}

	if itemID == "" {
		return retention.Result{}, models.ErrMissingItemID
	}

	return s.cleaner.Enforce(ctx, s.Settings(), itemType, itemID)
}

// Sweep enforces retention on every item of itemType. Individual failures
// are counted and logged; the sweep only stops early when ctx is done.
func (s *VersionService) Sweep(ctx context.Context, itemType string) (*models.SweepResult, error) {
	if itemType == "" {
		return nil, models.ErrMissingItemType
	}

	settings := s.Settings()
	res := &models.SweepResult{ItemType: itemType}

	if settings.Resolve(itemType).Noop() {
		return res, nil
	}

	ids, err := s.store.ListItemIDs(ctx, itemType)
	if err != nil {
		return nil, fmt.Errorf("sweeping %s: %w", itemType, err)
	}

	res.Items = len(ids)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(s.sweepWorkers)

	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r, err := s.cleaner.Enforce(ctx, settings, itemType, id)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				res.Failed++

				if !errors.Is(err, context.Canceled) {
					s.log.WithError(err).WithField("item_id", id).Warn("sweep: item failed")
				}

				return nil
			}

			res.Deleted += r.Deleted
			res.ObjectsCleared += r.ObjectsCleared
			res.ChangesCleared += r.ChangesCleared

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("sweeping %s: %w", itemType, err)
	}

	return res, nil
}

// ItemTypes returns every item type with recorded versions.
func (s *VersionService) ItemTypes(ctx context.Context) ([]string, error) {
	types, err := s.store.ListItemTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing item types: %w", err)
	}

	return types, nil
}

// Limits returns the effective retention limits for itemType.
func (s *VersionService) Limits(itemType string) retention.Effective {
	return s.Settings().Resolve(itemType)
}

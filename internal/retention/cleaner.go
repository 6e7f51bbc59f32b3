// Package retention enforces version retention limits for a single tracked
// item after each append.
//
// Three passes run in order: whole rows beyond the deletion threshold are
// deleted, then the object and object_changes payloads are cleared on rows
// older than their respective limits. The passes are serialized per item.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/metrics"
	"github.com/persistorai/trail/internal/models"
)

// Store is the version storage the Cleaner reads and prunes. Each method
// must apply atomically.
type Store interface {
	// ListVersions returns all versions of one item, oldest first.
	ListVersions(ctx context.Context, itemType, itemID string) ([]models.Version, error)
	DeleteVersions(ctx context.Context, ids []int64) (int, error)
	ClearField(ctx context.Context, ids []int64, field models.Field) (int, error)
}

// Locker is implemented by stores that can run the passes for one item in a
// single serialized transaction.
type Locker interface {
	WithEntityLock(ctx context.Context, itemType, itemID string, fn func(Store) error) error
}

// Result summarizes one enforcement run.
type Result struct {
	Threshold      Limit `json:"threshold"`
	Deleted        int   `json:"deleted"`
	ObjectsCleared int   `json:"objects_cleared"`
	ChangesCleared int   `json:"changes_cleared"`
	Skipped        bool  `json:"skipped"`
}

// Cleaner enforces retention limits.
type Cleaner struct {
	store Store
	log   *logrus.Logger
	locks *kmutex.Kmutex
}

// NewCleaner creates a Cleaner backed by store.
func NewCleaner(store Store, log *logrus.Logger) *Cleaner {
	return &Cleaner{store: store, log: log, locks: kmutex.New()}
}

// Enforce applies settings to one item. It returns without touching the
// store when every limit resolves to unlimited or disabled. Store failures
// are wrapped in models.ErrPruneFailed.
func (c *Cleaner) Enforce(ctx context.Context, settings Settings, itemType, itemID string) (Result, error) {
	eff := settings.Resolve(itemType)
	res := Result{Threshold: eff.DeletionThreshold()}

	if eff.Noop() {
		res.Skipped = true

		return res, nil
	}

	key := itemType + "\x00" + itemID
	c.locks.Lock(key)
	defer c.locks.Unlock(key)

	start := time.Now()

	var err error
	if l, ok := c.store.(Locker); ok {
		err = l.WithEntityLock(ctx, itemType, itemID, func(s Store) error {
			return c.run(ctx, s, eff, itemType, itemID, &res)
		})
	} else {
		err = c.run(ctx, c.store, eff, itemType, itemID, &res)
	}

	metrics.CleanerDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CleanerFailures.WithLabelValues(itemType).Inc()

		return Result{Threshold: res.Threshold}, fmt.Errorf("%w: %s/%s: %w", models.ErrPruneFailed, itemType, itemID, err)
	}

	metrics.VersionsDeleted.WithLabelValues(itemType).Add(float64(res.Deleted))
	metrics.FieldsCleared.WithLabelValues(itemType, string(models.FieldObject)).Add(float64(res.ObjectsCleared))
	metrics.FieldsCleared.WithLabelValues(itemType, string(models.FieldObjectChanges)).Add(float64(res.ChangesCleared))

	if res.Deleted > 0 || res.ObjectsCleared > 0 || res.ChangesCleared > 0 {
		c.log.WithFields(logrus.Fields{
			"item_type":       itemType,
			"item_id":         itemID,
			"threshold":       res.Threshold.String(),
			"deleted":         res.Deleted,
			"objects_cleared": res.ObjectsCleared,
			"changes_cleared": res.ChangesCleared,
		}).Debug("retention.enforce")
	}

	return res, nil
}

// run executes the deletion pass followed by both field passes against s.
func (c *Cleaner) run(ctx context.Context, s Store, eff Effective, itemType, itemID string, res *Result) error {
	versions, err := s.ListVersions(ctx, itemType, itemID)
	if err != nil {
		return fmt.Errorf("listing versions: %w", err)
	}

	doomed, survivors := planDeletion(versions, res.Threshold)
	if len(doomed) > 0 {
		n, err := s.DeleteVersions(ctx, doomed)
		if err != nil {
			return fmt.Errorf("deleting excess versions: %w", err)
		}

		res.Deleted = n
	}

	passes := []struct {
		field   models.Field
		limit   Limit
		enabled bool
		cleared *int
	}{
		{models.FieldObject, eff.ObjectsLimit, eff.ObjectsLimitEnabled, &res.ObjectsCleared},
		{models.FieldObjectChanges, eff.ChangesLimit, eff.ChangesLimitEnabled, &res.ChangesCleared},
	}

	for _, p := range passes {
		if !p.enabled {
			continue
		}

		ids := planFieldPrune(survivors, p.limit, p.field)
		if len(ids) == 0 {
			continue
		}

		n, err := s.ClearField(ctx, ids, p.field)
		if err != nil {
			return fmt.Errorf("clearing %s: %w", p.field, err)
		}

		*p.cleared = n
	}

	return nil
}

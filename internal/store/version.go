package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/trail/internal/models"
	"github.com/persistorai/trail/internal/retention"
)

const versionColumns = `id, item_type, item_id, event, whodunnit, object, object_changes, created_at`

// VersionStore provides data access for the versions table.
type VersionStore struct {
	Base
}

var (
	_ retention.Store  = (*VersionStore)(nil)
	_ retention.Locker = (*VersionStore)(nil)
)

// NewVersionStore creates a VersionStore.
func NewVersionStore(base Base) *VersionStore {
	return &VersionStore{Base: base}
}

// AppendVersion inserts a version row and returns it with its assigned ID.
func (s *VersionStore) AppendVersion(ctx context.Context, req *models.CreateVersionRequest) (*models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		INSERT INTO versions (item_type, item_id, event, whodunnit, object, object_changes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+versionColumns,
		req.ItemType, req.ItemID, string(req.Event), req.Whodunnit, req.Object, req.ObjectChanges,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting version: %w", err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("inserting version: %w", err)
	}

	return &v, nil
}

// ListVersions returns every version of one item, oldest first.
func (s *VersionStore) ListVersions(ctx context.Context, itemType, itemID string) ([]models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return listVersions(ctx, s.Pool, itemType, itemID)
}

// ListVersionsPage returns versions of one item newest first with has_more
// pagination.
func (s *VersionStore) ListVersionsPage(
	ctx context.Context,
	itemType, itemID string,
	limit, offset int,
) ([]models.Version, bool, error) {
	limit, offset = clampPage(limit, offset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("listing versions: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	rows, err := tx.Query(ctx, `SELECT `+versionColumns+`
		FROM versions
		WHERE item_type = $1 AND item_id = $2
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`,
		itemType, itemID, limit+1, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("querying versions: %w", err)
	}

	versions, err := pgx.CollectRows(rows, scanVersion)
	if err != nil {
		return nil, false, fmt.Errorf("scanning versions: %w", err)
	}

	hasMore := len(versions) > limit
	if hasMore {
		versions = versions[:limit]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing versions query: %w", err)
	}

	return versions, hasMore, nil
}

// ListItemIDs returns the distinct item IDs recorded for itemType.
func (s *VersionStore) ListItemIDs(ctx context.Context, itemType string) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT DISTINCT item_id FROM versions WHERE item_type = $1 ORDER BY item_id`,
		itemType,
	)
	if err != nil {
		return nil, fmt.Errorf("querying item ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning item ids: %w", err)
	}

	return ids, nil
}

// ListItemTypes returns every item type that has recorded versions.
func (s *VersionStore) ListItemTypes(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT item_type FROM versions ORDER BY item_type`)
	if err != nil {
		return nil, fmt.Errorf("querying item types: %w", err)
	}

	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning item types: %w", err)
	}

	return types, nil
}

// DeleteVersions deletes the given version rows.
func (s *VersionStore) DeleteVersions(ctx context.Context, ids []int64) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return deleteVersions(ctx, s.Pool, ids)
}

// ClearField sets field to NULL on the given version rows.
func (s *VersionStore) ClearField(ctx context.Context, ids []int64, field models.Field) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return clearField(ctx, s.Pool, ids, field)
}

// WithEntityLock runs fn in one transaction holding a transaction-scoped
// advisory lock on the item, so concurrent pruners for the same item queue
// behind each other across processes.
func (s *VersionStore) WithEntityLock(
	ctx context.Context,
	itemType, itemID string,
	fn func(retention.Store) error,
) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, itemType, itemID); err != nil {
		return fmt.Errorf("acquiring item lock: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing prune: %w", err)
	}

	return nil
}

// txStore runs retention.Store calls against an open transaction.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) ListVersions(ctx context.Context, itemType, itemID string) ([]models.Version, error) {
	return listVersions(ctx, t.tx, itemType, itemID)
}

func (t *txStore) DeleteVersions(ctx context.Context, ids []int64) (int, error) {
	return deleteVersions(ctx, t.tx, ids)
}

func (t *txStore) ClearField(ctx context.Context, ids []int64, field models.Field) (int, error) {
	return clearField(ctx, t.tx, ids, field)
}

func listVersions(ctx context.Context, q querier, itemType, itemID string) ([]models.Version, error) {
	rows, err := q.Query(ctx, `SELECT `+versionColumns+`
		FROM versions
		WHERE item_type = $1 AND item_id = $2
		ORDER BY id ASC`,
		itemType, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}

	versions, err := pgx.CollectRows(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("scanning versions: %w", err)
	}

	return versions, nil
}

func deleteVersions(ctx context.Context, q querier, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := q.Exec(ctx, `DELETE FROM versions WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting versions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// clearSQL maps each prunable field to its statement. Column names cannot be
// bound as parameters.
var clearSQL = map[models.Field]string{
	models.FieldObject:        `UPDATE versions SET object = NULL WHERE id = ANY($1) AND object IS NOT NULL`,
	models.FieldObjectChanges: `UPDATE versions SET object_changes = NULL WHERE id = ANY($1) AND object_changes IS NOT NULL`,
}

func clearField(ctx context.Context, q querier, ids []int64, field models.Field) (int, error) {
	stmt, ok := clearSQL[field]
	if !ok {
		return 0, fmt.Errorf("clearing %q: unknown field", field)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := q.Exec(ctx, stmt, ids)
	if err != nil {
		return 0, fmt.Errorf("clearing %s: %w", field, err)
	}

	return int(tag.RowsAffected()), nil
}

func scanVersion(row pgx.CollectableRow) (models.Version, error) {
	var (
		v     models.Version
		event string
	)

	err := row.Scan(
		&v.ID, &v.ItemType, &v.ItemID, &event, &v.Whodunnit,
		&v.Object, &v.ObjectChanges, &v.CreatedAt,
	)
	v.Event = models.Event(event)

	return v, err
}

package client

import (
	"encoding/json"
	"time"
)

// Version is one recorded mutation of a tracked item.
type Version struct {
	ID            int64           `json:"id"`
	ItemType      string          `json:"item_type"`
	ItemID        string          `json:"item_id"`
	Event         string          `json:"event"`
	Whodunnit     *string         `json:"whodunnit,omitempty"`
	Object        json.RawMessage `json:"object"`
	ObjectChanges json.RawMessage `json:"object_changes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordRequest is the payload for POST /api/v1/versions.
type RecordRequest struct {
	ItemType      string          `json:"item_type"`
	ItemID        string          `json:"item_id"`
	Event         string          `json:"event"`
	Whodunnit     *string         `json:"whodunnit,omitempty"`
	Object        json.RawMessage `json:"object,omitempty"`
	ObjectChanges json.RawMessage `json:"object_changes,omitempty"`
}

// RecordResponse is the created version. PruneError is set when the version
// was stored but retention enforcement failed afterwards.
type RecordResponse struct {
	Version
	PruneError string `json:"prune_error,omitempty"`
}

// ListOptions controls pagination of version history.
type ListOptions struct {
	Limit  int
	Offset int
}

// EnforceResult reports what one retention pass removed. A nil Threshold
// means the deletion threshold is unlimited, so the pass deletes no rows.
type EnforceResult struct {
	Threshold      *int `json:"threshold"`
	Deleted        int  `json:"deleted"`
	ObjectsCleared int  `json:"objects_cleared"`
	ChangesCleared int  `json:"changes_cleared"`
	Skipped        bool `json:"skipped"`
}

// Limits is the effective retention configuration of an item type. Nil
// limits are unlimited.
type Limits struct {
	ItemType            string `json:"item_type"`
	VersionLimit        *int   `json:"version_limit"`
	ObjectsLimit        *int   `json:"objects_limit"`
	ObjectsLimitEnabled bool   `json:"enable_objects_limit"`
	ChangesLimit        *int   `json:"changes_limit"`
	ChangesLimitEnabled bool   `json:"enable_changes_limit"`
	Policy              string `json:"policy"`
	DeletionThreshold   *int   `json:"deletion_threshold"`
	Noop                bool   `json:"noop"`
}

// SweepResult totals a synchronous sweep.
type SweepResult struct {
	ItemType       string `json:"item_type"`
	Items          int    `json:"items"`
	Deleted        int    `json:"deleted"`
	ObjectsCleared int    `json:"objects_cleared"`
	ChangesCleared int    `json:"changes_cleared"`
	Failed         int    `json:"failed"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	SchemaVersion int     `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

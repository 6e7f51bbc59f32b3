package models

import (
	"encoding/json"
	"time"
)

// Event is the kind of mutation a version records.
type Event string

// Version events.
const (
	EventCreate  Event = "create"
	EventUpdate  Event = "update"
	EventDestroy Event = "destroy"
)

// Valid reports whether e is a known event kind.
func (e Event) Valid() bool {
	switch e {
	case EventCreate, EventUpdate, EventDestroy:
		return true
	default:
		return false
	}
}

// Field names a prunable payload column on a version row.
type Field string

// Prunable payload fields.
const (
	FieldObject        Field = "object"
	FieldObjectChanges Field = "object_changes"
)

// Version is one recorded mutation of a tracked item. ID is the per-item
// ordering key: a higher ID is always the more recent version.
type Version struct {
	ID            int64           `json:"id"`
	ItemType      string          `json:"item_type"`
	ItemID        string          `json:"item_id"`
	Event         Event           `json:"event"`
	Whodunnit     *string         `json:"whodunnit,omitempty"`
	Object        json.RawMessage `json:"object"`
	ObjectChanges json.RawMessage `json:"object_changes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HasField reports whether the given payload field is populated.
func (v *Version) HasField(f Field) bool {
	switch f {
	case FieldObject:
		return len(v.Object) > 0
	case FieldObjectChanges:
		return len(v.ObjectChanges) > 0
	default:
		return false
	}
}

// CreateVersionRequest is the payload for appending a version.
type CreateVersionRequest struct {
	ItemType      string          `json:"item_type"`
	ItemID        string          `json:"item_id"`
	Event         Event           `json:"event"`
	Whodunnit     *string         `json:"whodunnit,omitempty"`
	Object        json.RawMessage `json:"object,omitempty"`
	ObjectChanges json.RawMessage `json:"object_changes,omitempty"`
}

const maxItemFieldLen = 255

// Validate checks required fields and the create/object invariant.
func (r *CreateVersionRequest) Validate() error {
	if r.ItemType == "" {
		return ErrMissingItemType
	}

	if len(r.ItemType) > maxItemFieldLen {
		return ErrFieldTooLong("item_type", maxItemFieldLen)
	}

	if r.ItemID == "" {
		return ErrMissingItemID
	}

	if len(r.ItemID) > maxItemFieldLen {
		return ErrFieldTooLong("item_id", maxItemFieldLen)
	}

	if !r.Event.Valid() {
		return ErrInvalidEvent
	}

	if r.Event == EventCreate && isPresent(r.Object) {
		return ErrCreateWithObject
	}

	return nil
}

// isPresent treats an explicit JSON null the same as an absent payload.
func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Normalize drops explicit JSON nulls so they are stored as SQL NULL.
func (r *CreateVersionRequest) Normalize() {
	if !isPresent(r.Object) {
		r.Object = nil
	}

	if !isPresent(r.ObjectChanges) {
		r.ObjectChanges = nil
	}
}

// SweepResult totals one re-enforcement pass over every item of a type.
type SweepResult struct {
	ItemType       string `json:"item_type"`
	Items          int    `json:"items"`
	Deleted        int    `json:"deleted"`
	ObjectsCleared int    `json:"objects_cleared"`
	ChangesCleared int    `json:"changes_cleared"`
	Failed         int    `json:"failed"`
}

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingItemType  = errors.New("item_type is required")
	ErrMissingItemID    = errors.New("item_id is required")
	ErrInvalidEvent     = errors.New("event must be one of create, update, destroy")
	ErrCreateWithObject = errors.New("create versions cannot carry an object snapshot")
)

// ErrPruneFailed marks a retention pass that did not complete. The version
// that triggered it has already been committed.
var ErrPruneFailed = errors.New("version pruning failed")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

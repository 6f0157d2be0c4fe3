package store

import "errors"

var (
	ErrNotFound    = errors.New("Listing not found")
	ErrDuplicate   = errors.New("Property already tracked for this URL")
	ErrStorageFull = errors.New("Failed to save properties. Storage may be full.")
)

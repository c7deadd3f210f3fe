package payloads

import "errors"

// Sentinel errors for payload lookups.
// Callers should use errors.Is() to check for these.
var (
	// ErrCategoryNotFound indicates the requested category ID does not exist.
	ErrCategoryNotFound = errors.New("payloads: category not found")
)

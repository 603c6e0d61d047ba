// Package sentinel defines infrastructure-fact error values shared across
// store-backed packages. These are distinct from validation errors: they
// describe what happened to a store operation, not whether caller input was
// well-formed.
package sentinel

import "errors"

var (
	// ErrNotFound indicates a lookup found no matching record.
	ErrNotFound = errors.New("sentinel: not found")
	// ErrConflict indicates a write lost a race against another writer.
	ErrConflict = errors.New("sentinel: conflict")
	// ErrExpired indicates a record existed but its TTL has lapsed.
	ErrExpired = errors.New("sentinel: expired")
	// ErrAlreadyUsed indicates a single-use token or lock was already consumed.
	ErrAlreadyUsed = errors.New("sentinel: already used")
	// ErrInvalidState indicates a record exists but is not in a usable shape
	// (corrupt JSON, wrong type for the key).
	ErrInvalidState = errors.New("sentinel: invalid state")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("sentinel: unavailable")
)

// Package store holds the persistence contract ProcessInstance and Engine
// save through, plus the collection implementations that back it: an
// in-memory collection for tests, a Redis-backed collection for
// production, and a circuit-breaker wrapper that can sit in front of
// either.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FindOne when no document matches id.
var ErrNotFound = errors.New("store: document not found")

// Collection is a minimal document store: documents are plain
// JSON-shaped maps keyed by an opaque id string. ProcessInstance and
// Engine never depend on a concrete collection, only on this interface,
// so swapping the in-memory test double for Redis requires no change to
// either.
type Collection interface {
	// Insert stores doc under id, failing if id is already present.
	Insert(ctx context.Context, id string, doc map[string]interface{}) error

	// Update overwrites the document stored under id, failing if it
	// does not already exist.
	Update(ctx context.Context, id string, doc map[string]interface{}) error

	// FindOne returns the document stored under id, or ErrNotFound.
	FindOne(ctx context.Context, id string) (map[string]interface{}, error)

	// Find returns every stored document for which match returns true.
	// match is applied in an unspecified order.
	Find(ctx context.Context, match func(map[string]interface{}) bool) ([]map[string]interface{}, error)

	// Delete removes the document stored under id. Deleting a missing
	// id is not an error.
	Delete(ctx context.Context, id string) error
}

// internal/pkg/storage/store.go
package storage

import "context"

// Store is a scoped key-value store. A scope is one portal session; keys are
// the session's storage slots. Writes are visible to every later read.
type Store interface {
	// Get returns xerrors.ErrNotFound when the key is not set.
	Get(ctx context.Context, scope, key string) (string, error)
	Set(ctx context.Context, scope, key, value string) error
	// Delete removes the keys. Keys that are not set are ignored.
	Delete(ctx context.Context, scope string, keys ...string) error
}

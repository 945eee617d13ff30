// Package metadata stores small key/value records in the local database.
// The session credential is kept here, one key per part.
package metadata

import "context"

type Repository interface {
	// Get returns the value for key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

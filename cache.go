package accounts

import (
	"context"
	"time"
)

// Cache is the byte-oriented key value store backing sessions and the
// profile read-through cache. Get reports a miss with found=false and a
// nil error, reserving errors for transport failures.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete reports whether the key existed. Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key string) (bool, error)
}

package tokencache

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the lifetime applied when a backend is built with ttl <= 0.
const DefaultTTL = time.Hour

// ErrUnavailable is returned when a persistent backend cannot be reached.
var ErrUnavailable = errors.New("token cache unavailable")

// Cache is the token cache capability set.
//
// Get reports ok=false for keys that were never set, were cleared, or have
// outlived the backend's expiry policy.
type Cache interface {
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	Set(ctx context.Context, key, token string) error
	Clear(ctx context.Context) error
}

// Entry is a single cached token.
type Entry struct {
	Key      string
	Token    string
	IssuedAt time.Time
}

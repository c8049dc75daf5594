package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys when no prefix is given.
const DefaultRedisPrefix = "gosnap:sig"

// clearIndexLua deletes every key listed in the index set, then the set.
// KEYS[1] = index set key
//
// Returns the number of entry keys removed.
var clearIndexLua = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
local removed = 0
for _, k in ipairs(members) do
  removed = removed + redis.call('DEL', k)
end
redis.call('DEL', KEYS[1])
return removed
`)

// Redis is a Cache persisted in Redis. Entries expire through Redis TTLs.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis-backed cache. An empty prefix selects
// DefaultRedisPrefix; ttl <= 0 selects DefaultTTL.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) entryKey(key string) string {
	return r.prefix + ":e:" + key
}

func (r *Redis) indexKey() string {
	return r.prefix + ":index"
}

// Get returns the token stored under key.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := r.redis.Get(ctx, r.entryKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, true, nil
}

// Set stores token under key with the configured TTL. The index set shares
// that TTL, renewed on every write, so it never outlives its newest entry.
func (r *Redis) Set(ctx context.Context, key, token string) error {
	entryKey := r.entryKey(key)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, token, r.ttl)
		pipe.SAdd(ctx, r.indexKey(), entryKey)
		pipe.Expire(ctx, r.indexKey(), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear removes every entry written through this cache's prefix.
func (r *Redis) Clear(ctx context.Context) error {
	if err := clearIndexLua.Run(ctx, r.redis, []string{r.indexKey()}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

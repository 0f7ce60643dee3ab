package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the redis key holding the count.
const DefaultKey = "prebook:prebookings"

// addCapped increments KEYS[1] by ARGV[1] without exceeding ARGV[2].
var addCapped = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local nxt = cur + tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if nxt > limit then nxt = math.max(cur, limit) end
redis.call("SET", KEYS[1], nxt)
return nxt
`)

// Redis is a Store shared between instances through redis.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis returns a Store on client under key, seeding it with initial when absent.
func NewRedis(ctx context.Context, client redis.UniversalClient, key string, initial int64) (*Redis, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := client.SetNX(ctx, key, initial, 0).Err(); err != nil {
		return nil, fmt.Errorf("seed counter: %w", err)
	}
	return &Redis{client: client, key: key}, nil
}

// Value returns the current count.
func (r *Redis) Value(ctx context.Context) (int64, error) {
	n, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return n, nil
}

// Add increases the count by n, capped at limit.
func (r *Redis) Add(ctx context.Context, n, limit int64) (int64, error) {
	v, err := addCapped.Run(ctx, r.client, []string{r.key}, n, limit).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return v, nil
}

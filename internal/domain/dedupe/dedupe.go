// Package dedupe tracks idempotency keys so a retried submission is not stored twice.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSize = 10_000
	defaultTTL     = 24 * time.Hour
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the caller can retry after a failed write.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps keys in an expiring LRU. The oldest key is evicted
// once maxSize is reached; keys also expire after ttl.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *expirable.LRU[string, struct{}]
	maxSize int
	ttl     time.Duration
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	size := d.maxSize
	if size < 0 {
		size = 0 // unbounded
	}
	d.seen = expirable.NewLRU[string, struct{}](size, nil, d.ttl)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen.Get(id); ok {
		return true
	}
	d.seen.Add(id, struct{}{})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(id)
}

// Size returns the current number of remembered keys.
func (d *inMemoryDeduper) Size() int64 {
	return int64(d.seen.Len())
}

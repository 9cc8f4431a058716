// Package dedupe tracks idempotency keys so a retried submission is applied
// at most once.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize is the number of keys kept when no size is configured.
const DefaultMaxSize = 50000

// Deduper records seen idempotency keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not, atomically.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the submission may be retried. Used when a
	// recorded submission was never applied (backpressure, rejected input,
	// failed transaction).
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key scopes an idempotency key to the source that sent it.
func Key(sourceID, idempotencyKey string) string {
	return sourceID + "/" + idempotencyKey
}

// inMemoryDeduper keeps keys in a map and, when bounded, a ring of insertion
// order. Once the ring is full the oldest key is evicted. Unrecorded keys
// leave a tombstone slot that is skipped on eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot, -1 when unbounded
	ring    []string
	next    int // slot the next key is written to
	maxSize int
}

// NewInMemoryDeduper creates a deduper. Bounded to DefaultMaxSize unless
// WithMaxSize says otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	if old := d.ring[d.next]; old != "" {
		if slot, ok := d.seen[old]; ok && slot == d.next {
			delete(d.seen, old)
		}
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

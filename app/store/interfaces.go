package store

import (
	"context"
	"time"
)

// Store is the shared key-value state backing quota counters, fingerprints,
// topic counters and the cycle lock. Every mutation that guards a pipeline
// invariant is a single atomic operation; callers never read-then-write.
//
// A ttl of zero means the key does not expire.
type Store interface {
	// IncrWithCap atomically increments the counter at key and reports
	// whether the increment stayed within cap. A cap <= 0 means uncapped.
	// The counter is never left above cap.
	IncrWithCap(ctx context.Context, key string, cap int64, ttl time.Duration) (bool, error)
	GetInt(ctx context.Context, key string) (int64, error)

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)

	// SetNX sets key only when absent; reports whether the set happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// SetIfEquals refreshes the ttl only while key still holds expected.
	SetIfEquals(ctx context.Context, key, expected string, ttl time.Duration) (bool, error)
	// DelIfEquals deletes key only while it still holds expected.
	DelIfEquals(ctx context.Context, key, expected string) (bool, error)

	// PushCapped prepends value to the list at key, trimming it to max
	// entries. Used for bounded recent-history lists and handoff queues.
	PushCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error
	Range(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

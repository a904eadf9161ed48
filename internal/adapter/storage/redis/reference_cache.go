package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReferenceCache implements ports.ReferenceCache using Redis. It is the
// fast-path duplicate-reference check; the unique constraint on the ledger
// remains authoritative when Redis is cold or unavailable.
type ReferenceCache struct {
	client *goredis.Client
	prefix string
}

// NewReferenceCache creates a Redis-backed reference cache.
func NewReferenceCache(client *goredis.Client) *ReferenceCache {
	return &ReferenceCache{
		client: client,
		prefix: "reference:",
	}
}

// Get retrieves the cached transaction JSON for a reference.
// Returns nil, nil if the reference has not been seen.
func (c *ReferenceCache) Get(ctx context.Context, reference string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+reference).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis reference get: %w", err)
	}
	return val, nil
}

// Set stores the transaction JSON for a reference with TTL.
func (c *ReferenceCache) Set(ctx context.Context, reference string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+reference, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis reference set: %w", err)
	}
	return nil
}

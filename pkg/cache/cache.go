// Package cache defines the operational state store. Collectors write
// JSON documents under TTL; the exporter and northbound read them back.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Set stores a document. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// GetAll returns every live document whose key matches the glob
	// pattern ("*" matches any run of characters).
	GetAll(ctx context.Context, pattern string) (map[string][]byte, error)
	Delete(ctx context.Context, key string) error
	// Expire resets the ttl of an existing document.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

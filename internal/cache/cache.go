package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache is the read-through cache the repositories consult before
// hitting postgres.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value under the key. A zero expiration means the
	// entry never expires on its own.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes one key.
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes every key under the prefix, used when an
	// entity type is invalidated wholesale.
	DeleteByPrefix(ctx context.Context, prefix string)

	// Flush drops everything.
	Flush(ctx context.Context)
}

// Key prefixes are versioned so a schema change can invalidate old
// entries by bumping the version segment.
const (
	PrefixService = "service:v1:"
	PrefixPatient = "patient:v1:"
)

// GenerateKey joins the prefix and parameters with colons.
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = strings.TrimSuffix(prefix, ":")

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}

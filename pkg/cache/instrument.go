package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/fieldtrial/pkg/observability"
)

// Instrumented reports hits, misses and writes of an inner cache to the
// registered observability hooks. The key type is the key prefix before the
// first colon ("table", "artifact"), with any scope prefix stripped.
type Instrumented struct {
	Cache
}

// Instrument wraps c.
func Instrument(c Cache) Cache { return Instrumented{Cache: c} }

// Get implements Cache.
func (c Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

// Set implements Cache.
func (c Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

func keyType(key string) string {
	for _, t := range []string{KeyTypeTable, KeyTypeArtifact} {
		if strings.HasPrefix(key, t+":") || strings.Contains(key, ":"+t+":") {
			return t
		}
	}
	return "other"
}

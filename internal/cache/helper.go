package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetJSON reads a typed value from the cache. The in-memory backend stores
// live pointers while the Redis backend stores JSON payloads; this helper
// hides the difference from callers.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	v, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}

	switch value := v.(type) {
	case *T:
		return value, true
	case T:
		return &value, true
	case []byte:
		var out T
		if err := json.Unmarshal(value, &out); err != nil {
			return nil, false
		}
		return &out, true
	case string:
		var out T
		if err := json.Unmarshal([]byte(value), &out); err != nil {
			return nil, false
		}
		return &out, true
	default:
		return nil, false
	}
}

// SetJSON writes a typed value to the cache
func SetJSON[T any](ctx context.Context, c Cache, key string, value *T, expiration time.Duration) {
	c.Set(ctx, key, value, expiration)
}

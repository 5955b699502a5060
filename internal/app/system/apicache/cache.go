// internal/app/system/apicache/cache.go
package apicache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is the validity window for cached directory reads. Membership
// and admin-check lookups use a shorter TTL at the call site because they
// change more often.
const (
	DefaultTTL    = time.Hour
	MembershipTTL = time.Minute
)

// Backend is the raw key-value store under the cache. Entries written with
// ttl == 0 never expire on their own.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Cache stores JSON-serialized values with a separate validity sentinel per
// key. The payload entry is written without expiry so it survives past its
// TTL and can be served stale when the upstream API is down; the sentinel
// entry carries the TTL and decides whether a normal Get sees the payload.
type Cache struct {
	backend Backend
	log     *zap.Logger
}

// New builds a cache over the given backend.
func New(backend Backend, logger *zap.Logger) *Cache {
	return &Cache{backend: backend, log: logger}
}

// Get fetches a valid entry into out. It reports false when the key is
// absent or its validity sentinel has expired, even though the payload may
// still be physically present.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if _, ok, err := c.backend.Get(ctx, key+"_valid"); err != nil || !ok {
		if err != nil {
			c.log.Warn("cache sentinel read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return c.read(ctx, key, out)
}

// GetStale fetches an entry into out regardless of its validity sentinel.
// This is the explicit serve-stale-on-upstream-failure path.
func (c *Cache) GetStale(ctx context.Context, key string, out any) bool {
	return c.read(ctx, key, out)
}

func (c *Cache) read(ctx context.Context, key string, out any) bool {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores a value with the given TTL (DefaultTTL when zero). Every set
// writes two entries: the payload without expiry and the validity sentinel
// with the TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, key+"_valid", []byte("1"), ttl); err != nil {
		c.log.Warn("cache sentinel write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, key, raw, 0); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.backend.Clear(ctx); err != nil {
		c.log.Warn("cache clear failed", zap.Error(err))
	}
}

// Key builds a namespaced cache key from a component, a method name and the
// call arguments, e.g. "groupdir.getUserGroups(u42)".
func Key(component, method string, args ...any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return fmt.Sprintf("%s.%s(%s)", component, method, strings.Join(parts, ","))
}

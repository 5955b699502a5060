// internal/app/system/apicache/backends.go
package apicache

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MemoryBackend is a process-local backend. Suitable for a single-instance
// deployment; multi-instance deployments should use the shared Mongo
// backend so login-triggered and scheduled syncs see the same entries.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemoryBackend builds an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// MongoBackend stores cache entries in a TTL-indexed collection so multiple
// instances share one cache.
type MongoBackend struct {
	c *mongo.Collection
}

type cacheDoc struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// NewMongoBackend builds a backend over the "api_cache" collection.
// EnsureSchema creates the TTL index on expires_at.
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{c: db.Collection("api_cache")}
}

func (m *MongoBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc cacheDoc
	err := m.c.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// The TTL monitor only runs every minute; treat overdue entries as gone.
	if doc.ExpiresAt != nil && time.Now().After(*doc.ExpiresAt) {
		return nil, false, nil
	}
	return doc.Value, true, nil
}

func (m *MongoBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	doc := cacheDoc{Key: key, Value: value}
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		doc.ExpiresAt = &t
	}
	_, err := m.c.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoBackend) Clear(ctx context.Context) error {
	_, err := m.c.DeleteMany(ctx, bson.M{})
	return err
}

// NullBackend is the degraded mode used when no cache backend is available:
// every get misses and every set is a no-op, so callers always fall through
// to the API client.
type NullBackend struct{}

func (NullBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullBackend) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (NullBackend) Clear(context.Context) error { return nil }

// Select picks a backend by configured name. An unavailable Mongo backend
// degrades to the null cache rather than failing startup.
func Select(kind string, db *mongo.Database, logger *zap.Logger) Backend {
	switch kind {
	case "mongo":
		if db == nil {
			logger.Warn("no database available for cache backend, falling back to null cache")
			return NullBackend{}
		}
		return NewMongoBackend(db)
	case "off":
		return NullBackend{}
	default:
		return NewMemoryBackend()
	}
}

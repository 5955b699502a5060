// Package timeouts provides centralized timeout values for the service's
// I/O tiers, used with context.WithTimeout. Defaults suit a small member
// base; Configure overrides them at startup.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads and simple writes
//   - Drain: one pass over the pending task queue
//   - Sync: a full reconciliation run against the remote API
package timeouts

import (
	"sync"
	"time"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 5 * time.Second
	DefaultDrain = 30 * time.Second
	DefaultSync  = 10 * time.Minute
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping     = DefaultPing
	short    = DefaultShort
	drain    = DefaultDrain
	fullSync = DefaultSync
)

// Ping returns the timeout for health checks and connectivity verification.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations like single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Drain returns the timeout for one pass over the pending task queue.
func Drain() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return drain
}

// Sync returns the timeout for a full reconciliation run. It bounds the
// scheduled share, admin and cleanup syncs, each of which pages through the
// complete remote group and membership listings.
func Sync() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return fullSync
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping  time.Duration
	Short time.Duration
	Drain time.Duration
	Sync  time.Duration
}

// Configure sets custom timeout values. Zero values in the config are
// ignored, keeping the current (or default) values. Call during startup,
// before handlers and workers are running.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Drain > 0 {
		drain = cfg.Drain
	}
	if cfg.Sync > 0 {
		fullSync = cfg.Sync
	}
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	drain = DefaultDrain
	fullSync = DefaultSync
}

package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: engine closed")
)

// KVEngine is an embedded key-value store.
//
// Implementations are safe for concurrent use and return ErrClosed once
// Close has been called.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// SetIfAbsent stores value only if key is missing and reports whether
	// it was stored.
	SetIfAbsent(ctx context.Context, key, value []byte) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Scan iterates over keys with a given prefix in key order.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC reclaims space held by stale values.
	GC(ctx context.Context) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	LSMSize      uint64
	ValueLogSize uint64

	// LastGCTime is the last GC run, Unix milliseconds. Zero if never.
	LastGCTime int64

	// GCRuns counts value log rewrites performed by GC.
	GCRuns uint64
}

// TotalSize is the on-disk footprint.
func (s *KVStats) TotalSize() uint64 {
	return s.LSMSize + s.ValueLogSize
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Nothing survives Close.
	InMemory bool

	// GCInterval is the interval between automatic GC runs.
	// Zero disables the background loop.
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of stale data in a value log file
	// that makes it eligible for rewrite.
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// SyncWrites fsyncs after every write.
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:            dir,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
		CacheSize:      16 << 20, // 16MB
		SyncWrites:     true,
	}
}

// InMemoryKVConfig returns a configuration for a memory-only engine.
func InMemoryKVConfig() KVConfig {
	cfg := DefaultKVConfig("")
	cfg.InMemory = true
	cfg.GCInterval = 0
	cfg.SyncWrites = false
	return cfg
}

// Package cmap provides a concurrent map and a striped lock keyed by the
// same hash.
//
// Map spreads keys over power-of-two shards, each guarded by its own
// RWMutex, so inserts and removals for different keys rarely contend.
// Keys are hashed with murmur3.
//
// Usage:
//
//	m := cmap.New[string, *session.Session]()
//	m.Set("shop-1", s)
//	s, ok := m.Get("shop-1")
//
// Callbacks passed to Range run under a shard read lock and must not call
// back into the same Map with a write operation.
//
// Striped serializes work per key without allocating a mutex per key:
//
//	locks := cmap.NewStriped(64)
//	unlock := locks.Lock("shop-1")
//	defer unlock()
package cmap

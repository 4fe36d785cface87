package cmap

// Range iterates over all key-value pairs.
//
// The callback returns false to stop iteration. Locks are taken shard by
// shard, so the view is not a consistent snapshot.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, shard := range m.shards {
		shard.mu.RLock()
		for k, v := range shard.items {
			if !fn(k, v) {
				shard.mu.RUnlock()
				return
			}
		}
		shard.mu.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns all values.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Count())
	m.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// GetOrSet returns the existing value for a key, or stores and returns the
// given value. The boolean reports whether the value already existed.
func (m *Map[K, V]) GetOrSet(key K, value V) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.items[key]; ok {
		return existing, true
	}
	shard.items[key] = value
	return value, false
}

// SetIfAbsent sets the value only if the key does not exist.
// Returns true if the value was set.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.items[key]; ok {
		return false
	}
	shard.items[key] = value
	return true
}

// Pop removes a key and returns its value.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	val, ok := shard.items[key]
	if ok {
		delete(shard.items, key)
	}
	return val, ok
}

// DeleteIf removes key only if its current value satisfies pred.
// Returns true if the key was removed.
//
// Use it to remove an entry only while it still holds a value the caller
// observed earlier:
//
//	m.DeleteIf(id, func(cur *Session) bool { return cur == s })
func (m *Map[K, V]) DeleteIf(key K, pred func(value V) bool) bool {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current, ok := shard.items[key]
	if !ok || !pred(current) {
		return false
	}
	delete(shard.items, key)
	return true
}

// Drain removes every item and returns them. Each shard is emptied under its
// write lock, so an item is returned by at most one concurrent Drain or Pop.
func (m *Map[K, V]) Drain() map[K]V {
	out := make(map[K]V)
	for _, shard := range m.shards {
		shard.mu.Lock()
		for k, v := range shard.items {
			out[k] = v
		}
		shard.items = make(map[K]V)
		shard.mu.Unlock()
	}
	return out
}

// ShardStats reports the number of items in one shard.
type ShardStats struct {
	Index int
	Count int
}

// Stats returns statistics about all shards.
func (m *Map[K, V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, shard := range m.shards {
		shard.mu.RLock()
		stats[i] = ShardStats{Index: i, Count: len(shard.items)}
		shard.mu.RUnlock()
	}
	return stats
}

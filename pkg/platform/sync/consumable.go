package sync

import "time"

// ConsumableMap is a concurrent map whose entries are meant to be read once.
// Insert-if-absent and remove-if-present are atomic per key, so two callers
// can never both claim the same key. Keys share the ShardedMutex shard layout.
type ConsumableMap[V any] struct {
	locks   *ShardedMutex
	entries [32]map[string]consumableEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

type consumableEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ConsumableOption configures a ConsumableMap.
type ConsumableOption func(*consumableConfig)

type consumableConfig struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL bounds how long an entry survives. Zero (the default) keeps
// entries until they are consumed.
func WithTTL(ttl time.Duration) ConsumableOption {
	return func(c *consumableConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) ConsumableOption {
	return func(c *consumableConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewConsumableMap creates an empty map.
func NewConsumableMap[V any](opts ...ConsumableOption) *ConsumableMap[V] {
	cfg := consumableConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &ConsumableMap[V]{locks: NewShardedMutex(), ttl: cfg.ttl, now: cfg.now}
	for i := range m.entries {
		m.entries[i] = make(map[string]consumableEntry[V])
	}
	return m
}

// Put stores value under key, replacing any previous entry.
func (m *ConsumableMap[V]) Put(key string, value V) {
	shard := m.locks.shardFor(key)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)
	m.entries[shard][key] = consumableEntry[V]{value: value, storedAt: m.now()}
}

// PutIfAbsent stores value only when key is not live. It reports whether the
// value was stored.
func (m *ConsumableMap[V]) PutIfAbsent(key string, value V) bool {
	shard := m.locks.shardFor(key)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)
	if e, ok := m.entries[shard][key]; ok && !m.expired(e) {
		return false
	}
	m.entries[shard][key] = consumableEntry[V]{value: value, storedAt: m.now()}
	return true
}

// Take removes and returns the entry for key. Expired entries are dropped
// and reported as absent.
func (m *ConsumableMap[V]) Take(key string) (V, bool) {
	shard := m.locks.shardFor(key)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)
	e, ok := m.entries[shard][key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(m.entries[shard], key)
	if m.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Sweep drops expired entries and returns how many were removed.
func (m *ConsumableMap[V]) Sweep() int {
	if m.ttl == 0 {
		return 0
	}
	removed := 0
	for i := range m.entries {
		m.locks.shards[i].Lock()
		for k, e := range m.entries[i] {
			if m.expired(e) {
				delete(m.entries[i], k)
				removed++
			}
		}
		m.locks.shards[i].Unlock()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *ConsumableMap[V]) Len() int {
	n := 0
	for i := range m.entries {
		m.locks.shards[i].Lock()
		n += len(m.entries[i])
		m.locks.shards[i].Unlock()
	}
	return n
}

func (m *ConsumableMap[V]) expired(e consumableEntry[V]) bool {
	return m.ttl > 0 && m.now().Sub(e.storedAt) >= m.ttl
}

// ConsumableSet records keys that may be claimed once.
type ConsumableSet struct {
	m *ConsumableMap[struct{}]
}

// NewConsumableSet creates an empty set.
func NewConsumableSet(opts ...ConsumableOption) *ConsumableSet {
	return &ConsumableSet{m: NewConsumableMap[struct{}](opts...)}
}

// Claim records key and reports true the first time it is seen.
func (s *ConsumableSet) Claim(key string) bool {
	return s.m.PutIfAbsent(key, struct{}{})
}

// Sweep drops expired keys.
func (s *ConsumableSet) Sweep() int {
	return s.m.Sweep()
}

// Len returns the number of recorded keys.
func (s *ConsumableSet) Len() int {
	return s.m.Len()
}

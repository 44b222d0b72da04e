// Package cache implements the two-tier cache fabric: a namespaced
// in-memory TTL cache in front of a Badger-backed disk cache, with
// per-key single-flight deduplication and sentinel support for
// providers that legitimately return nothing.
package cache

import (
	"sync"
	"time"
)

// NamespaceConfig sets the TTL and entry cap of one L1 namespace.
type NamespaceConfig struct {
	TTL time.Duration
	Cap int
}

const (
	defaultTTL = 15 * time.Minute
	defaultCap = 2048
)

type memEntry struct {
	value   []byte
	expires time.Time
}

// Memory is the L1 tier: per-namespace maps with lazy TTL expiry and
// oldest-expiry eviction once a namespace hits its cap.
type Memory struct {
	mu     sync.Mutex
	config map[string]NamespaceConfig
	spaces map[string]map[string]memEntry
	now    func() time.Time
}

// NewMemory creates the L1 tier with the given per-namespace configs.
// Unconfigured namespaces fall back to the package defaults.
func NewMemory(config map[string]NamespaceConfig) *Memory {
	if config == nil {
		config = map[string]NamespaceConfig{}
	}
	return &Memory{
		config: config,
		spaces: map[string]map[string]memEntry{},
		now:    time.Now,
	}
}

func (m *Memory) namespaceConfig(ns string) NamespaceConfig {
	cfg, ok := m.config[ns]
	if !ok {
		cfg = NamespaceConfig{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Cap <= 0 {
		cfg.Cap = defaultCap
	}
	return cfg
}

// Get returns the cached bytes for ns:key, or false on a miss or an
// expired entry.
func (m *Memory) Get(ns, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.spaces[ns]
	if !ok {
		return nil, false
	}
	entry, ok := space[key]
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expires) {
		delete(space, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under ns:key with the namespace TTL.
func (m *Memory) Set(ns, key string, value []byte) {
	m.SetWithTTL(ns, key, value, 0)
}

// SetWithTTL stores value under ns:key. A non-positive ttl uses the
// namespace default.
func (m *Memory) SetWithTTL(ns, key string, value []byte, ttl time.Duration) {
	cfg := m.namespaceConfig(ns)
	if ttl <= 0 {
		ttl = cfg.TTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.spaces[ns]
	if !ok {
		space = map[string]memEntry{}
		m.spaces[ns] = space
	}

	if _, exists := space[key]; !exists && len(space) >= cfg.Cap {
		m.evictOldest(space)
	}
	space[key] = memEntry{value: value, expires: m.now().Add(ttl)}
}

// evictOldest drops the entry closest to expiry. Called with the lock held.
func (m *Memory) evictOldest(space map[string]memEntry) {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range space {
		if first || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
			first = false
		}
	}
	if !first {
		delete(space, oldestKey)
	}
}

// Delete removes one entry.
func (m *Memory) Delete(ns, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if space, ok := m.spaces[ns]; ok {
		delete(space, key)
	}
}

// ClearAll empties every namespace.
func (m *Memory) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces = map[string]map[string]memEntry{}
}

// Len reports the live entry count of one namespace, expiring lazily.
func (m *Memory) Len(ns string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.spaces[ns]
	if !ok {
		return 0
	}
	now := m.now()
	for k, e := range space {
		if now.After(e.expires) {
			delete(space, k)
		}
	}
	return len(space)
}

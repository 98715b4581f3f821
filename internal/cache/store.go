package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	val     any
	expires time.Time
}

// Store is the raw TTL'd key/value map under the cache layer. It can
// be flipped unavailable (ops toggle, failure injection in tests);
// the layer then falls back to direct database reads and writes.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]entry
	available atomic.Bool
}

func NewStore() *Store {
	s := &Store{entries: make(map[string]entry)}
	s.available.Store(true)
	return s
}

func (s *Store) Available() bool { return s.available.Load() }

// SetAvailable toggles the store. While unavailable every Get misses
// and every Set is dropped.
func (s *Store) SetAvailable(v bool) { s.available.Store(v) }

func (s *Store) Get(key string) (any, bool) {
	if !s.Available() {
		return nil, false
	}
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (s *Store) Set(key string, val any, ttl time.Duration) {
	if !s.Available() {
		return
	}
	s.mu.Lock()
	s.entries[key] = entry{val: val, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Sweep drops expired entries. Called from the flush loop so the map
// does not grow unbounded between reads.
func (s *Store) Sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

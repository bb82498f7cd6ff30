package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultCapacity = 512

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an LRU map bounded by entry count. Every entry lives at most the
// cache-wide TTL; a shorter per-call TTL is checked on read.
type Memory struct {
	capacity int
	lru      *expirable.LRU[string, entry]
}

// NewMemory builds a cache holding up to capacity entries. A non-positive ttl
// keeps entries until they are evicted.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{
		capacity: capacity,
		lru:      expirable.NewLRU[string, entry](capacity, nil, ttl),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !time.Now().Before(e.expires) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key. A non-positive ttl falls back to the cache-wide
// one.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}

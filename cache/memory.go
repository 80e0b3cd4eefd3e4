package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped lazily and by a sweeper.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	windows map[string][]time.Time
	now     func() time.Time
	closed  chan struct{}
	once    sync.Once
}

// NewMemoryCache creates an in-process cache and starts its expiry sweeper. Call Close to stop it.
func NewMemoryCache() *MemoryCache {
	m := &MemoryCache{
		entries: make(map[string]memoryEntry),
		windows: make(map[string][]time.Time),
		now:     time.Now,
		closed:  make(chan struct{}),
	}
	go m.sweep(time.Minute)
	return m
}

// Get returns the value stored under key if it has not expired.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value; a non-positive ttl keeps it until Close.
func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Allow records a hit for key and reports whether key has seen at most limit hits within window.
func (m *MemoryCache) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	hits := pruneHits(m.windows[key], now.Add(-window))
	allowed := len(hits) < limit
	m.windows[key] = append(hits, now)
	return allowed, nil
}

// pruneHits drops the hits at or before cutoff. hits is in time order.
func pruneHits(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper.
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.closed:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryCache) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	// Windows older than an hour carry no hits any limiter still counts.
	for k, hits := range m.windows {
		if len(hits) == 0 || now.Sub(hits[len(hits)-1]) > time.Hour {
			delete(m.windows, k)
		}
	}
}

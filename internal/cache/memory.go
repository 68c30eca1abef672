package cache

import (
	"context"
	"sync"
	"time"
)

const (
	sweepThreshold = 1024
	sweepInterval  = time.Minute
)

// MemoryGuard is the in-process ViewGuard used when Redis is not configured.
type MemoryGuard struct {
	mu        sync.Mutex
	data      map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		data: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryGuard) Close() error {
	return nil
}

func (m *MemoryGuard) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.data[key]; ok && now.Before(expires) {
		return true, nil
	}

	m.data[key] = now.Add(ttl)
	m.sweep(now)
	return false, nil
}

// sweep drops expired entries once the map grows, at most once per
// sweepInterval, keeping memory bounded by the number of live viewers.
func (m *MemoryGuard) sweep(now time.Time) {
	if len(m.data) < sweepThreshold || now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	for k, expires := range m.data {
		if !now.Before(expires) {
			delete(m.data, k)
		}
	}
	m.lastSweep = now
}

func (m *MemoryGuard) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.data = make(map[string]time.Time)
	m.mu.Unlock()
	return nil
}

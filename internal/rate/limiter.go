package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	// Allow reports whether key may act now under limit events per window.
	// When it may not, the duration is how long until it can.
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

type bucket struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key, refilled evenly across the window.
// Buckets left idle for a full window are back at burst and can be dropped by Sweep.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *MemoryLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 || window <= 0 {
		return true, 0
	}
	now := m.now()
	r := m.bucket(key, limit, window, now).ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (m *MemoryLimiter) bucket(key string, limit int, window time.Duration, now time.Time) *rate.Limiter {
	id := fmt.Sprintf("%s|%d|%s", key, limit, window)

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[id]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			window:  window,
		}
		m.buckets[id] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Sweep drops buckets unused for at least their window and returns how many
// were removed.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, b := range m.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(m.buckets, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Run sweeps every interval until ctx is done.
func (m *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

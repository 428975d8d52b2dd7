package ratelimit

import (
	"context"
	"sync"
	"time"
)

const DefaultSweepInterval = 10 * time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local Store. Expired windows are removed lazily:
// a Take that arrives SweepInterval after the previous sweep drops them first.
type MemoryStore struct {
	mu            sync.Mutex
	windows       map[string]*window
	sweepInterval time.Duration
	lastSweep     time.Time
}

func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &MemoryStore{windows: make(map[string]*window), sweepInterval: sweepInterval}
}

func (s *MemoryStore) Take(_ context.Context, key string, win time.Duration, max int, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSweep.IsZero() {
		s.lastSweep = now
	} else if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweepLocked(now)
	}

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(win)}
		s.windows[key] = w
		return Decision{Allowed: true, Remaining: max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Decision{Allowed: true, Remaining: max - w.count, ResetAt: w.resetAt}, nil
}

// Sweep drops every window whose reset time has passed.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, k)
		}
	}
	s.lastSweep = now
}

// Len reports how many windows are currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

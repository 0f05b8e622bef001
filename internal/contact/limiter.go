package contact

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultRateMax    = 5
	DefaultRateWindow = 10 * time.Minute
	unknownClientKey  = "unknown"
)

// Window is a fixed rate-limit window that starts with the first attempt.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Store keeps rate-limit windows. Implementations must make Increment atomic
// per key.
type Store interface {
	Get(ctx context.Context, key string) (Window, bool, error)
	// Increment counts one attempt. An absent or expired window restarts at 1
	// and resets at now+window.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
	Reset(ctx context.Context, key string) error
}

// Limiter allows max attempts per key within a fixed window.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	clock  func() time.Time
}

// NewLimiter returns a limiter over store. Non-positive limits use the defaults.
func NewLimiter(store Store, max int, window time.Duration, clock func() time.Time) *Limiter {
	if max <= 0 {
		max = DefaultRateMax
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	if clock == nil {
		clock = time.Now
	}
	if store == nil {
		store = NewMemoryStore(clock)
	}
	return &Limiter{store: store, max: max, window: window, clock: clock}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, Window, error) {
	w, err := l.store.Increment(ctx, clientKey(key), l.clock(), l.window)
	if err != nil {
		return false, Window{}, err
	}
	return w.Count <= l.max, w, nil
}

func clientKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return unknownClientKey
	}
	return key
}

// MemoryStore keeps windows in process memory. Expired windows are pruned
// whenever a new window starts.
type MemoryStore struct {
	clock   func() time.Time
	mu      sync.Mutex
	windows map[string]Window
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{clock: clock, windows: make(map[string]Window)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Window, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	if !ok || s.clock().After(w.ResetAt) {
		return Window{}, false, nil
	}
	return w, true, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.ResetAt) {
		w = Window{Count: 1, ResetAt: now.Add(window)}
		s.windows[key] = w
		s.pruneExpiredLocked(now)
		return w, nil
	}
	w.Count++
	s.windows[key] = w
	return w, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) pruneExpiredLocked(now time.Time) {
	for key, w := range s.windows {
		if now.After(w.ResetAt) {
			delete(s.windows, key)
		}
	}
}

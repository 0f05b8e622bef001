package contact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterAllowsFiveThenRejects(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(NewMemoryStore(clock.Now), 5, 10*time.Minute, clock.Now)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ok, w, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should pass", i)
		assert.Equal(t, i, w.Count)
	}
	ok, _, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok, "sixth attempt must be rejected")

	other, _, err := limiter.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, other, "limits are per key")

	clock.Advance(9 * time.Minute)
	ok, _, _ = limiter.Allow(ctx, "203.0.113.7")
	assert.False(t, ok, "window is fixed from the first attempt")

	clock.Advance(time.Minute + time.Second)
	ok, w, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, ok, "window resets after it expires")
	assert.Equal(t, 1, w.Count)
}

func TestLimiterEmptyKeyIsUnknown(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	limiter := NewLimiter(store, 1, time.Minute, clock.Now)

	ok, _, _ := limiter.Allow(context.Background(), "  ")
	assert.True(t, ok)
	ok, _, _ = limiter.Allow(context.Background(), "")
	assert.False(t, ok)

	w, found, err := store.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, w.Count)
}

func TestNewLimiterDefaults(t *testing.T) {
	limiter := NewLimiter(nil, 0, 0, nil)
	assert.Equal(t, DefaultRateMax, limiter.max)
	assert.Equal(t, DefaultRateWindow, limiter.window)
	assert.NotNil(t, limiter.store)
}

func TestMemoryStorePrunesExpiredWindows(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	_, err := store.Increment(ctx, "a", clock.Now(), time.Minute)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "b", clock.Now(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Minute)
	_, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found, "expired windows are not reported")

	_, err = store.Increment(ctx, "c", clock.Now(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Reset(ctx, "c"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore(nil)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Increment(context.Background(), "k", now, time.Hour)
		}()
	}
	wg.Wait()
	w, found, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 50, w.Count)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "10.0.0.1", documentID("10.0.0.1"))
	assert.Equal(t, "a_b", documentID("a/b"))
	assert.Equal(t, "unknown", documentID(".."))
}

func TestFirestoreStoreExpiryFollowsClock(t *testing.T) {
	clock := newFakeClock()
	store := NewFirestoreStore(nil, "", clock.Now)
	assert.Equal(t, defaultRateCollection, store.collection)

	memory := NewMemoryStore(clock.Now)
	w, err := memory.Increment(context.Background(), "k", clock.Now(), time.Minute)
	require.NoError(t, err)
	doc := rateDocument{Count: w.Count, ResetAt: w.ResetAt}

	for _, step := range []time.Duration{0, 59 * time.Second, time.Second, time.Nanosecond} {
		clock.Advance(step)
		_, inMemory, err := memory.Get(context.Background(), "k")
		require.NoError(t, err)
		got, live := doc.live(store.clock())
		assert.Equal(t, inMemory, live, "after %s", step)
		if live {
			assert.Equal(t, w, got)
		}
	}
	_, live := doc.live(store.clock())
	assert.False(t, live, "window is over once the clock passes ResetAt")

	assert.NotNil(t, NewFirestoreStore(nil, "rates", nil).clock)
}

package profile_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sadraka/maherkar-sub001/profile"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/stretchr/testify/require"
)

type clock struct {
	lock sync.Mutex
	now  time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

func TestCache(t *testing.T) {
	clk := newClock()
	cache := profile.NewCache(profile.WithNowFunc(clk.Now))

	_, ok := cache.Get()
	require.False(t, ok)

	cache.Put(&users.Profile{Username: "ali", UserType: users.UserTypeEmployer})
	p, ok := cache.Get()
	require.True(t, ok)
	require.Equal(t, "ali", p.Username)

	// callers get a copy
	p.Username = "changed"
	p, _ = cache.Get()
	require.Equal(t, "ali", p.Username)

	clk.Advance(profile.DefaultTTL - time.Second)
	_, ok = cache.Get()
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok = cache.Get()
	require.False(t, ok)

	entry, ok := cache.Peek()
	require.True(t, ok)
	require.Equal(t, "ali", entry.Profile.Username)

	cache.Clear()
	_, ok = cache.Peek()
	require.False(t, ok)
}

func TestCachePutIf(t *testing.T) {
	cache := profile.NewCache(profile.WithNowFunc(newClock().Now))

	gen := cache.Generation()
	require.True(t, cache.PutIf(gen, &users.Profile{Username: "ali"}))
	require.Equal(t, gen, cache.Generation())

	cache.Clear()
	require.False(t, cache.PutIf(gen, &users.Profile{Username: "stale"}))
	_, ok := cache.Get()
	require.False(t, ok)

	require.True(t, cache.PutIf(cache.Generation(), &users.Profile{Username: "sara"}))
	p, ok := cache.Get()
	require.True(t, ok)
	require.Equal(t, "sara", p.Username)
}

func TestCacheCustomTTL(t *testing.T) {
	clk := newClock()
	cache := profile.NewCache(profile.WithNowFunc(clk.Now), profile.WithTTL(time.Minute))
	cache.Put(&users.Profile{Username: "mina"})
	clk.Advance(time.Minute)
	_, ok := cache.Get()
	require.False(t, ok)
}

func TestGuard(t *testing.T) {
	t.Run("busy guard refuses", func(t *testing.T) {
		clk := newClock()
		g := profile.NewGuard(clk.Now)
		require.True(t, g.TryAcquire(0))
		require.True(t, g.InProgress())
		require.False(t, g.TryAcquire(0))
		g.Release()
		require.False(t, g.InProgress())
		require.True(t, g.TryAcquire(0))
	})

	t.Run("spacing", func(t *testing.T) {
		clk := newClock()
		g := profile.NewGuard(clk.Now)
		require.True(t, g.TryAcquire(2*time.Second))
		g.Release()

		clk.Advance(1999 * time.Millisecond)
		require.False(t, g.TryAcquire(2*time.Second))
		clk.Advance(time.Millisecond)
		require.True(t, g.TryAcquire(2*time.Second))
		g.Release()

		clk.Advance(3 * time.Second)
		require.False(t, g.TryAcquire(5*time.Second))
		require.True(t, g.TryAcquire(2*time.Second))
	})

	t.Run("touch counts as an attempt", func(t *testing.T) {
		clk := newClock()
		g := profile.NewGuard(clk.Now)
		g.Touch()
		require.False(t, g.TryAcquire(2*time.Second))
		clk.Advance(2 * time.Second)
		require.True(t, g.TryAcquire(2*time.Second))
	})

	t.Run("one winner under contention", func(t *testing.T) {
		g := profile.NewGuard(nil)
		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if g.TryAcquire(time.Hour) {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})
}

// Package profile holds the short-lived cache of the signed-in user's profile
// and the guard that keeps identity fetches from piling up.
package profile

import (
	"sync"
	"time"

	"github.com/Sadraka/maherkar-sub001/users"
)

// DefaultTTL is how long a fetched profile is served without asking the
// backend again.
const DefaultTTL = 5 * time.Minute

// Entry is a cached profile and the moment it was fetched.
type Entry struct {
	Profile   users.Profile
	FetchedAt time.Time
}

// Cache is a single-slot TTL cache.
type Cache struct {
	lock    sync.RWMutex
	entry   *Entry
	gen     uint64
	ttl     time.Duration
	nowFunc func() time.Time
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

func WithNowFunc(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func NewCache(options ...CacheOption) *Cache {
	c := &Cache{ttl: DefaultTTL, nowFunc: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached profile if it is still fresh.
func (c *Cache) Get() (*users.Profile, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.entry == nil || c.nowFunc().Sub(c.entry.FetchedAt) >= c.ttl {
		return nil, false
	}
	p := c.entry.Profile
	return &p, true
}

// Peek returns the cached entry regardless of age.
func (c *Cache) Peek() (Entry, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.entry == nil {
		return Entry{}, false
	}
	return *c.entry, true
}

// Put stores p stamped with the current time. A nil profile clears the cache.
func (c *Cache) Put(p *users.Profile) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.put(p)
}

// Generation identifies the current contents epoch. Every clear starts a new
// one.
func (c *Cache) Generation() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.gen
}

// PutIf stores p only if the cache has not been cleared since gen was read.
func (c *Cache) PutIf(gen uint64, p *users.Profile) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.gen != gen {
		return false
	}
	c.put(p)
	return true
}

func (c *Cache) put(p *users.Profile) {
	if p == nil {
		c.entry = nil
		c.gen++
		return
	}
	c.entry = &Entry{Profile: *p, FetchedAt: c.nowFunc()}
}

func (c *Cache) Clear() {
	c.Put(nil)
}

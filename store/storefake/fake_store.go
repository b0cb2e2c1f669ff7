package storefake

import (
	"sync"
	"time"

	"github.com/Sadraka/maherkar-sub001/store"
)

var _ store.Store = (*Store)(nil)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store is an in-memory store.Store with an injectable clock. It also counts
// writes and deletes so tests can assert on side effects.
type Store struct {
	lock    sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	sets    map[string]int
	deletes map[string]int
}

func NewFakeStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
		sets:    make(map[string]int),
		deletes: make(map[string]int),
	}
}

// WithNow replaces the clock used to evaluate expiry.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.now = now
	return s
}

func (s *Store) Set(name, value string, ttlDays int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e := entry{value: value}
	if ttlDays > 0 {
		e.expiresAt = s.now().Add(time.Duration(ttlDays) * 24 * time.Hour)
	}
	s.entries[name] = e
	s.sets[name]++
}

func (s *Store) Get(name string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	e, ok := s.entries[name]
	if !ok || e.value == "" {
		return "", false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (s *Store) Delete(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entries, name)
	s.deletes[name]++
}

func (s *Store) Sets(name string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sets[name]
}

func (s *Store) Deletes(name string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.deletes[name]
}

// ExpiresAt reports the expiry recorded for name, zero if none.
func (s *Store) ExpiresAt(name string) time.Time {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.entries[name].expiresAt
}

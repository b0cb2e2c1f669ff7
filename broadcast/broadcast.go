// Package broadcast is a small observer registry used to tell independently
// mounted UI shells that the session changed.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Event string

const (
	Logout Event = "logout"
)

type Handler func(Event)

type subscriber struct {
	id      uuid.UUID
	handler Handler
}

// Registry delivers events to its subscribers synchronously, in the order
// they subscribed.
type Registry struct {
	lock        sync.RWMutex
	subscribers []subscriber
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscription is returned by Subscribe and cancels delivery when
// unsubscribed.
type Subscription struct {
	ID       uuid.UUID
	registry *Registry
	once     sync.Once
}

func (r *Registry) Subscribe(h Handler) *Subscription {
	s := &Subscription{ID: uuid.New(), registry: r}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.subscribers = append(r.subscribers, subscriber{id: s.ID, handler: h})
	return s
}

// Unsubscribe is safe to call more than once and from inside a handler.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.registry.remove(s.ID)
	})
}

func (r *Registry) remove(id uuid.UUID) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i, sub := range r.subscribers {
		if sub.id == id {
			r.subscribers = append(r.subscribers[:i:i], r.subscribers[i+1:]...)
			return
		}
	}
}

// Publish calls every handler subscribed at the time of the call and returns
// once all of them have run.
func (r *Registry) Publish(e Event) {
	r.lock.RLock()
	subs := make([]subscriber, len(r.subscribers))
	copy(subs, r.subscribers)
	r.lock.RUnlock()

	log.Debug().Str("event", string(e)).Int("subscribers", len(subs)).Msg("publishing session event")
	for _, sub := range subs {
		sub.handler(e)
	}
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.subscribers)
}

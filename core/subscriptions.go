package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/otolabs/oto-core/core/events"
)

// Subscription is the handle returned from Subscribe. Unsubscribing through
// the handle is the only way to detach a listener, which keeps bookkeeping
// leak-free.
type Subscription struct {
	id          uuid.UUID
	unsubscribe func()
}

// ID identifies the subscription.
func (s Subscription) ID() uuid.UUID { return s.id }

// Unsubscribe detaches the listener. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

type subscriber struct {
	handler func(events.Event)
	// kinds is nil for listeners that want everything.
	kinds map[events.Kind]struct{}
}

// subscriptions is a typed publish-subscribe registry keyed by event kind.
type subscriptions struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*subscriber
}

func newSubscriptions() *subscriptions {
	return &subscriptions{entries: map[uuid.UUID]*subscriber{}}
}

func (s *subscriptions) subscribe(handler func(events.Event), kinds ...events.Kind) Subscription {
	entry := &subscriber{handler: handler}
	if len(kinds) > 0 {
		entry.kinds = make(map[events.Kind]struct{}, len(kinds))
		for _, kind := range kinds {
			entry.kinds[kind] = struct{}{}
		}
	}

	id := uuid.New()
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()

	return Subscription{
		id: id,
		unsubscribe: func() {
			s.mu.Lock()
			delete(s.entries, id)
			s.mu.Unlock()
		},
	}
}

func (s *subscriptions) publish(event events.Event) {
	s.mu.RLock()
	handlers := make([]func(events.Event), 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.kinds != nil {
			if _, ok := entry.kinds[event.Kind()]; !ok {
				continue
			}
		}
		handlers = append(handlers, entry.handler)
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (s *subscriptions) clear() {
	s.mu.Lock()
	s.entries = map[uuid.UUID]*subscriber{}
	s.mu.Unlock()
}

package event

import (
	"slices"
	"sync"

	"github.com/freightmarket/backend/internal/domain/shared"
)

// subscription binds a handler to a set of event types. An empty set matches
// every event.
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// subscriptions keeps handlers in the order they subscribed. Delivery follows
// that order regardless of whether a handler is typed or catch-all.
type subscriptions struct {
	mu   sync.RWMutex
	list []subscription
}

func (s *subscriptions) add(handler shared.EventHandler, eventTypes ...string) {
	sub := subscription{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = struct{}{}
		}
	}

	s.mu.Lock()
	s.list = append(s.list, sub)
	s.mu.Unlock()
}

func (s *subscriptions) remove(handler shared.EventHandler) {
	s.mu.Lock()
	s.list = slices.DeleteFunc(s.list, func(sub subscription) bool { return sub.handler == handler })
	s.mu.Unlock()
}

// forType returns a snapshot so handlers may subscribe while an event is in flight.
func (s *subscriptions) forType(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.EventHandler
	for _, sub := range s.list {
		if sub.matches(eventType) {
			out = append(out, sub.handler)
		}
	}
	return out
}

// Package stream fans session events out to live subscribers.
package stream

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// DefaultBuffer is the per-subscriber queue length used when none is given
const DefaultBuffer = 32

// Hub delivers every published event to the subscribers of its session.
// Publishing never blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	buffer      int
	closed      bool
}

// Subscription receives the events of one session
type Subscription struct {
	sessionID string
	events    chan models.SessionEvent
	hub       *Hub
	once      sync.Once
	dropped   atomic.Int64
}

// NewHub creates a hub. A non-positive buffer uses DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber for sessionID. On a closed hub the
// returned subscription's channel is already closed.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		sessionID: sessionID,
		events:    make(chan models.SessionEvent, h.buffer),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}

	subs, ok := h.subscribers[sessionID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.subscribers[sessionID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish implements engine.EventPublisher
func (h *Hub) Publish(event models.SessionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[event.SessionID] {
		select {
		case sub.events <- event:
		default:
			if sub.dropped.Add(1) == 1 {
				log.Printf(`{"level":"warn","message":"Stream subscriber is falling behind, dropping events","session_id":%q}`, event.SessionID)
			}
		}
	}
}

// SubscriberCount returns the number of live subscribers for sessionID
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// Close closes every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sessionID, subs := range h.subscribers {
		for sub := range subs {
			sub.once.Do(func() { close(sub.events) })
		}
		delete(h.subscribers, sessionID)
	}
}

// Events returns the channel of events. It is closed by Close or Hub.Close.
func (s *Subscription) Events() <-chan models.SessionEvent {
	return s.events
}

// Dropped returns how many events this subscriber missed because its queue was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subscribers[s.sessionID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.subscribers, s.sessionID)
		}
	}
	s.once.Do(func() { close(s.events) })
}

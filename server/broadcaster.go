package server

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Broadcaster is the process-wide fan-out point: a single producer (the
// delta encoder or the stylus task) publishes frames that every
// registered Session receives, in the order published. Each subscriber
// has its own bounded queue; a subscriber that falls behind is dropped
// rather than allowed to slow the producer.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Session
}

// NewBroadcaster returns an empty Broadcaster ready to accept subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[uuid.UUID]*Session)}
}

// Register adds session to the fan-out set.
func (b *Broadcaster) Register(session *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[session.ID()] = session
}

// Unregister removes session from the fan-out set. Safe to call even if
// the session was already removed.
func (b *Broadcaster) Unregister(session *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, session.ID())
}

// Broadcast publishes frame to every registered subscriber. Subscribers
// whose backlog is full are evicted and closed; Broadcast itself never
// blocks on a slow client.
func (b *Broadcaster) Broadcast(frame []byte) {
	b.mu.RLock()
	targets := make([]*Session, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.Enqueue(frame); err != nil {
			log.Printf("server: session %s backlog full, disconnecting", s.ID())
			s.Close()
			b.Unregister(s)
		}
	}
}

// Count returns the number of currently registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

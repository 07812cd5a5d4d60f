// Package broadcast fans accepted seat transitions out to live subscribers.
// Delivery is best-effort: a slow or gone subscriber never stalls the mutator
// that produced the event.  There is no backlog or replay; a subscriber must
// register first and pull the full catalog afterwards, so any transition
// racing the registration is either in the stream or in the pulled snapshot.
package broadcast

import (
	"sync"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// subscriberBuffer bounds the per-subscriber queue.  On overflow the oldest
// buffered event is dropped in favor of the new one.
const subscriberBuffer = 64

// Subscriber is one connected observer.  Events arrive on C until Close.
type Subscriber struct {
	ClientID string

	mu     sync.Mutex
	ch     chan model.SeatUpdateEvent
	closed bool
}

// C returns the subscriber's event stream.
func (s *Subscriber) C() <-chan model.SeatUpdateEvent { return s.ch }

func (s *Subscriber) deliver(ev model.SeatUpdateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		// Queue full: discard the oldest event and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broadcaster is the subscriber registry.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// New returns an empty broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers an observer.  Callers must pull current catalog state
// only after this returns to avoid missing transitions.
func (b *Broadcaster) Subscribe(clientID string) *Subscriber {
	s := &Subscriber{ClientID: clientID, ch: make(chan model.SeatUpdateEvent, subscriberBuffer)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes the observer and closes its stream.
func (b *Broadcaster) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
	s.close()
}

// Publish delivers one event to every current subscriber without blocking.
func (b *Broadcaster) Publish(ev model.SeatUpdateEvent) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.deliver(ev)
	}
}

// Len reports the number of connected subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package service

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const DefaultQueueSize = 64

var (
	// ErrSlowSubscriber is the reason recorded on a subscription whose queue
	// overflowed.
	ErrSlowSubscriber = errors.New("subscriber queue overflow")
	// ErrHubClosed ends every subscription when the hub shuts down.
	ErrHubClosed = errors.New("hub closed")
)

type deliveryResult int

const (
	delivered deliveryResult = iota
	overflowed
	alreadyClosed
)

// Subscription is one live consumer of the hub. Envelopes arrive in publish
// order on a bounded queue; the channel is closed when the subscription ends.
type Subscription struct {
	ID string

	ch     chan domain.BroadcastEnvelope
	mu     sync.Mutex
	closed bool
	err    error
}

func (s *Subscription) Envelopes() <-chan domain.BroadcastEnvelope {
	return s.ch
}

// Err reports why the subscription ended: nil after Unsubscribe,
// ErrSlowSubscriber after an overflow, ErrHubClosed after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) deliver(env domain.BroadcastEnvelope) deliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return alreadyClosed
	}
	select {
	case s.ch <- env:
		return delivered
	default:
		s.closeLocked(ErrSlowSubscriber)
		return overflowed
	}
}

func (s *Subscription) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(err)
}

func (s *Subscription) closeLocked(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// Hub fans envelopes out to every current subscriber. Publish never blocks on
// a subscriber: one that cannot keep up is disconnected instead.
type Hub struct {
	queueSize int

	mu          sync.Mutex
	subscribers map[string]*Subscription
	closed      bool
}

func NewHub(queueSize int) *Hub {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize:   queueSize,
		subscribers: make(map[string]*Subscription),
	}
}

// Subscribe registers a consumer. It sees only envelopes published after this
// call returns. After Close the subscription comes back already ended.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID: uuid.NewString(),
		ch: make(chan domain.BroadcastEnvelope, h.queueSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close(ErrHubClosed)
		return sub
	}
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	log.Debug().Str("subscriber_id", sub.ID).Msg("subscriber connected")
	return sub
}

// Unsubscribe removes the consumer and closes its channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.remove(sub.ID)
	sub.close(nil)
}

// Publish offers env to every subscriber and returns how many accepted it.
func (h *Hub) Publish(env domain.BroadcastEnvelope) int {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	count := 0
	for _, sub := range subs {
		switch sub.deliver(env) {
		case delivered:
			count++
		case overflowed:
			h.remove(sub.ID)
			log.Warn().
				Err(domain.NewError(domain.KindBroadcastDelivery, ErrSlowSubscriber, "subscriber disconnected")).
				Str("kind", string(domain.KindBroadcastDelivery)).
				Str("subscriber_id", sub.ID).
				Str("vehicle_id", env.VehicleID).
				Msg("slow subscriber dropped")
		case alreadyClosed:
			h.remove(sub.ID)
		}
	}
	return count
}

// Close ends every current subscription with ErrHubClosed and refuses new
// ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close(ErrHubClosed)
	}
	log.Info().Int("subscribers", len(subs)).Msg("broadcast hub closed")
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ChangeEvent describes one change to the order collection. Consumers treat
// it as a re-fetch trigger only; the payload is never trusted as state.
type ChangeEvent struct {
	Op        Op     `json:"op"`
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Filter decides whether a subscriber receives a given event.
type Filter func(ChangeEvent) bool

// AllOrders is the kitchen scope: every change is relevant.
func AllOrders() Filter {
	return func(ChangeEvent) bool { return true }
}

// SessionScope is the customer scope: only changes to the caller's own
// orders are relevant.
func SessionScope(sessionID string) Filter {
	return func(ev ChangeEvent) bool { return ev.SessionID == sessionID }
}

const subscriberBuffer = 16

type subscriber struct {
	filter Filter
	ch     chan ChangeEvent
}

// Bus fans change events out to subscribers. Delivery is at-least-once and
// coalescing: a subscriber whose channel is full loses the event, which is
// safe because every event only means "re-fetch now".
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]*subscriber),
	}
}

// Subscribe registers a filtered subscriber. The returned cancel func must
// be called when the consumer goes away; it closes the event channel.
func (b *Bus) Subscribe(filter Filter) (<-chan ChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		filter: filter,
		ch:     make(chan ChangeEvent, subscriberBuffer),
	}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}

	return sub.ch, cancel
}

func (b *Bus) Publish(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is behind; the pending event it already has will
			// trigger the same re-fetch.
			log.Debug().Str("order_id", ev.OrderID).Msg("notify: subscriber channel full, event coalesced")
		}
	}
}

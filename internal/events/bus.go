// Package events is an in-process publish/subscribe bus. Subscribers hold
// an explicit Subscription and must call Unsubscribe to stop receiving.
package events

import (
	"context"
	"sync"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
)

// Topic names a kind of event.
type Topic string

const (
	TopicDebtCreated Topic = "debt.created"
	TopicDebtUpdated Topic = "debt.updated"
	TopicDebtDeleted Topic = "debt.deleted"

	TopicReceivableSaved   Topic = "receivable.saved"
	TopicReceivableDeleted Topic = "receivable.deleted"
)

// Event is delivered to subscribers of its topic. Debt topics fill the
// Debt fields, receivable topics the Receivable ones.
type Event struct {
	Topic        Topic
	DebtID       int64
	Debt         *domain.Debt
	ReceivableID int64
	Receivable   *domain.Receivable
}

// Handler receives published events.
type Handler func(ctx context.Context, ev Event)

// Bus dispatches events synchronously to the handlers subscribed at
// publish time.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic]map[uint64]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[uint64]Handler)}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus   *Bus
	topic Topic
	id    uint64
	once  sync.Once
}

// Subscribe registers h for topic.
func (b *Bus) Subscribe(topic Topic, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][b.nextID] = h
	return &Subscription{bus: b, topic: topic, id: b.nextID}
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs[s.topic], s.id)
	})
}

// Publish calls every handler subscribed to ev.Topic. Handlers run outside
// the bus lock, so they may subscribe or unsubscribe.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ev.Topic]))
	for _, h := range b.subs[ev.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// count returns the number of handlers on topic.
func (b *Bus) count(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

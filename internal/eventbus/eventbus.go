// Package eventbus is a process-local, synchronous publish/subscribe
// mechanism. Delivery is at-most-once and happens on the emitter's
// goroutine; nothing is persisted and nothing crosses process
// boundaries. It decouples the payment ledger from its consumers, it
// does not make delivery durable: a crash between the ledger write and
// Emit loses the event, and correctness is restored by provider
// redelivery plus idempotent consumers.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// TopicPaymentSucceeded carries a PaymentSucceeded payload.
const TopicPaymentSucceeded = "payment.succeeded"

// PaymentSucceeded is published exactly once per payment, by whichever
// caller won the ledger's pending→succeeded transition.
type PaymentSucceeded struct {
	PaymentID string
	BuyerID   string
	CourseID  string
	Amount    int64
	Currency  string
}

// Handler processes one delivered event. A handler error is logged and
// does not stop delivery to later subscribers, nor does it roll back
// whatever the emitter already committed.
type Handler func(ctx context.Context, payload any) error

// Subscription identifies one registered handler for Unsubscribe.
type Subscription struct {
	topic string
	id    uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

func (b *Bus) Subscribe(topic string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscriber{id: b.nextID, handler: h})

	return &Subscription{topic: topic, id: b.nextID}
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every subscriber for the topic in registration order,
// on the caller's goroutine. A panicking or erroring subscriber is
// logged and skipped; the rest still run.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(ctx, topic, s, payload)
	}
}

func (b *Bus) dispatch(ctx context.Context, topic string, s subscriber, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", topic).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()

	if err := s.handler(ctx, payload); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Msg("event subscriber failed")
	}
}

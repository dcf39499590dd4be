package events

import (
	"context"
	"sync"
	"testing"
)

func TestPublishDeliversToTopic(t *testing.T) {
	bus := NewBus()
	var created, deleted int

	bus.Subscribe(TopicDebtCreated, func(ctx context.Context, ev Event) { created++ })
	bus.Subscribe(TopicDebtDeleted, func(ctx context.Context, ev Event) { deleted++ })

	bus.Publish(context.Background(), Event{Topic: TopicDebtCreated, DebtID: 1})
	bus.Publish(context.Background(), Event{Topic: TopicDebtCreated, DebtID: 2})

	if created != 2 || deleted != 0 {
		t.Errorf("created=%d deleted=%d, want 2 and 0", created, deleted)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub := bus.Subscribe(TopicDebtUpdated, func(ctx context.Context, ev Event) { calls++ })

	bus.Publish(context.Background(), Event{Topic: TopicDebtUpdated})
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(context.Background(), Event{Topic: TopicDebtUpdated})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := bus.count(TopicDebtUpdated); n != 0 {
		t.Errorf("count() = %d, want 0", n)
	}
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub *Subscription
	sub = bus.Subscribe(TopicDebtCreated, func(ctx context.Context, ev Event) {
		calls++
		sub.Unsubscribe()
	})

	bus.Publish(context.Background(), Event{Topic: TopicDebtCreated})
	bus.Publish(context.Background(), Event{Topic: TopicDebtCreated})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TopicDebtCreated, func(ctx context.Context, ev Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Topic: TopicDebtCreated})
		}()
	}
	wg.Wait()

	if calls != 20 {
		t.Errorf("calls = %d, want 20", calls)
	}
}

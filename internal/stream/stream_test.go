package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.Subscribe(ctx)
	b := hub.Subscribe(ctx)
	evt := NewEvent(TicketCreated, "app-1", "t-1", "OPEN")
	hub.Publish(evt)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			if got.ID != evt.ID || got.TicketID != "t-1" || got.Type != TicketCreated {
				t.Fatalf("unexpected event: %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	if hub.Subscribers() != 1 {
		t.Fatalf("expected one subscriber, got %d", hub.Subscribers())
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers())
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = hub.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberSize*4; i++ {
			hub.Publish(NewEvent(MessageAdded, "app-1", "t-1", ""))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestEventIDsAreOrdered(t *testing.T) {
	a := NewEvent(TicketCreated, "", "", "")
	b := NewEvent(TicketCreated, "", "", "")
	if a.ID >= b.ID {
		t.Fatalf("expected increasing ids: %s >= %s", a.ID, b.ID)
	}
}

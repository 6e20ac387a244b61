package stream

import (
	"context"
	"sync"
	"time"

	"eeytech.com/console/internal/ids"
)

// EventType names a ticket lifecycle change.
type EventType string

const (
	TicketCreated EventType = "ticket.created"
	MessageAdded  EventType = "ticket.message"
	StatusChanged EventType = "ticket.status"
)

const subscriberSize = 16

// Event describes a change to a ticket, delivered to SSE subscribers.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	ApplicationID string    `json:"applicationId"`
	TicketID      string    `json:"ticketId"`
	Status        string    `json:"status,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a sortable id and the current time.
func NewEvent(typ EventType, applicationID, ticketID, status string) Event {
	return Event{
		ID:            ids.New(),
		Type:          typ,
		ApplicationID: applicationID,
		TicketID:      ticketID,
		Status:        status,
		Timestamp:     time.Now().UTC(),
	}
}

// Hub fan-outs ticket events to all active subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberSize)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. Slow subscribers miss events
// rather than block the publisher.
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

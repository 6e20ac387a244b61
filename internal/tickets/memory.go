package tickets

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"eeytech.com/console/internal/auth"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	tickets  map[string]Ticket
	messages map[string][]Message
}

// NewInMemory creates an empty ticket store.
func NewInMemory() *InMemory {
	return &InMemory{
		tickets:  make(map[string]Ticket),
		messages: make(map[string][]Message),
	}
}

func (s *InMemory) CreateTicket(_ context.Context, t Ticket, first Message) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.ID]; ok {
		return Ticket{}, auth.ErrConflict
	}
	t.Messages = nil
	s.tickets[t.ID] = t
	s.messages[t.ID] = []Message{first}
	return t, nil
}

func (s *InMemory) ListTickets(_ context.Context, f Filter) ([]Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if f.ApplicationID != "" && t.ApplicationID != f.ApplicationID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) GetTicket(_ context.Context, id string) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, auth.ErrNotFound
	}
	t.Messages = slices.Clone(s.messages[id])
	return t, nil
}

func (s *InMemory) AddMessage(_ context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[m.TicketID]
	if !ok {
		return Message{}, auth.ErrNotFound
	}
	t.UpdatedAt = m.CreatedAt
	s.tickets[m.TicketID] = t
	s.messages[m.TicketID] = append(s.messages[m.TicketID], m)
	return m, nil
}

func (s *InMemory) UpdateStatus(_ context.Context, id string, status Status, at time.Time) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, auth.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	s.tickets[id] = t
	return t, nil
}

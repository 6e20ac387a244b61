package tickets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"eeytech.com/console/internal/stream"
)

// Publisher receives ticket events after each successful mutation.
type Publisher interface {
	Publish(evt stream.Event)
}

// Service validates ticket operations and publishes their events.
type Service struct {
	store Store
	pub   Publisher
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

type discard struct{}

func (discard) Publish(stream.Event) {}

// NewService constructs a Service over store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("tickets: store is required")
	}
	s := &Service{store: store, pub: discard{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create opens a ticket in status OPEN together with its first message.
func (s *Service) Create(ctx context.Context, in NewTicket) (Ticket, error) {
	in, err := in.validate()
	if err != nil {
		return Ticket{}, err
	}
	now := s.now().UTC()
	t := Ticket{
		ID:            uuid.NewString(),
		ApplicationID: in.ApplicationID,
		UserID:        in.UserID,
		Subject:       in.Subject,
		Status:        StatusOpen,
		Priority:      in.Priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	first := Message{
		ID:        uuid.NewString(),
		TicketID:  t.ID,
		UserID:    in.UserID,
		Content:   in.Content,
		CreatedAt: now,
	}
	created, err := s.store.CreateTicket(ctx, t, first)
	if err != nil {
		return Ticket{}, err
	}
	s.pub.Publish(stream.NewEvent(stream.TicketCreated, created.ApplicationID, created.ID, string(created.Status)))
	return created, nil
}

// List returns tickets newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Ticket, error) {
	f.ApplicationID = strings.TrimSpace(f.ApplicationID)
	return s.store.ListTickets(ctx, f)
}

// Get returns a ticket with its conversation.
func (s *Service) Get(ctx context.Context, id string) (Ticket, error) {
	return s.store.GetTicket(ctx, strings.TrimSpace(id))
}

// AddMessage appends a reply to an existing ticket.
func (s *Service) AddMessage(ctx context.Context, ticketID, userID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if err := validContent(content); err != nil {
		return Message{}, err
	}
	t, err := s.store.GetTicket(ctx, strings.TrimSpace(ticketID))
	if err != nil {
		return Message{}, err
	}
	m, err := s.store.AddMessage(ctx, Message{
		ID:        uuid.NewString(),
		TicketID:  t.ID,
		UserID:    strings.TrimSpace(userID),
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return Message{}, err
	}
	s.pub.Publish(stream.NewEvent(stream.MessageAdded, t.ApplicationID, t.ID, string(t.Status)))
	return m, nil
}

// UpdateStatus moves a ticket to another lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (Ticket, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Ticket{}, err
	}
	t, err := s.store.UpdateStatus(ctx, strings.TrimSpace(id), st, s.now().UTC())
	if err != nil {
		return Ticket{}, err
	}
	s.pub.Publish(stream.NewEvent(stream.StatusChanged, t.ApplicationID, t.ID, string(t.Status)))
	return t, nil
}

package tickets

import (
	"context"
	"time"
)

// Store persists tickets. CreateTicket writes the ticket and its first
// message atomically.
type Store interface {
	CreateTicket(ctx context.Context, t Ticket, first Message) (Ticket, error)
	ListTickets(ctx context.Context, f Filter) ([]Ticket, error)
	// GetTicket returns the ticket with its messages, oldest first.
	GetTicket(ctx context.Context, id string) (Ticket, error)
	// AddMessage appends a message and bumps the ticket's updated_at.
	AddMessage(ctx context.Context, m Message) (Message, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Ticket, error)
}

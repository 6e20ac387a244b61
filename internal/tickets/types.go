package tickets

import (
	"fmt"
	"strings"
	"time"

	"eeytech.com/console/internal/auth"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

// Priority ranks a ticket for triage.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

const (
	minSubjectLength = 5
	minContentLength = 10
)

// Ticket is a support request opened against one application.
type Ticket struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	UserID        string    `json:"userId"`
	Subject       string    `json:"subject"`
	Status        Status    `json:"status"`
	Priority      Priority  `json:"priority"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Messages      []Message `json:"messages,omitempty"`
}

// Message is one entry in a ticket's conversation.
type Message struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTicket carries the fields needed to open a ticket and its first message.
type NewTicket struct {
	ApplicationID string
	UserID        string
	Subject       string
	Content       string
	Priority      Priority
}

// Filter narrows List. An empty ApplicationID lists every application.
type Filter struct {
	ApplicationID string
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusOpen, StatusInProgress, StatusClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", auth.ErrInvalidInput, s)
}

// ParsePriority accepts a priority name in any case; blank means MEDIUM.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", auth.ErrInvalidInput, s)
}

func (n NewTicket) validate() (NewTicket, error) {
	n.ApplicationID = strings.TrimSpace(n.ApplicationID)
	n.UserID = strings.TrimSpace(n.UserID)
	n.Subject = strings.TrimSpace(n.Subject)
	n.Content = strings.TrimSpace(n.Content)
	if n.ApplicationID == "" {
		return n, fmt.Errorf("%w: application is required", auth.ErrInvalidInput)
	}
	if n.UserID == "" {
		return n, fmt.Errorf("%w: user is required", auth.ErrInvalidInput)
	}
	if len([]rune(n.Subject)) < minSubjectLength {
		return n, fmt.Errorf("%w: subject must have at least %d characters", auth.ErrInvalidInput, minSubjectLength)
	}
	if err := validContent(n.Content); err != nil {
		return n, err
	}
	p, err := ParsePriority(string(n.Priority))
	if err != nil {
		return n, err
	}
	n.Priority = p
	return n, nil
}

func validContent(content string) error {
	if len([]rune(content)) < minContentLength {
		return fmt.Errorf("%w: message must have at least %d characters", auth.ErrInvalidInput, minContentLength)
	}
	return nil
}

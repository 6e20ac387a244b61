package tickets

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/stream"
)

type recorder struct {
	mu     sync.Mutex
	events []stream.Event
}

func (r *recorder) Publish(evt stream.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []stream.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stream.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recorder, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	rec := &recorder{}
	svc, err := NewService(NewInMemory(), WithPublisher(rec), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return svc, rec, &now
}

func validTicket() NewTicket {
	return NewTicket{
		ApplicationID: "app-1",
		UserID:        "user-1",
		Subject:       "Login broken",
		Content:       "Cannot sign in since this morning.",
	}
}

func TestCreateOpensTicketWithFirstMessage(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, created.Status)
	assert.Equal(t, PriorityMedium, created.Priority)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Cannot sign in since this morning.", got.Messages[0].Content)
	assert.Equal(t, "user-1", got.Messages[0].UserID)
	assert.Equal(t, []stream.EventType{stream.TicketCreated}, rec.types())
}

func TestCreateValidatesInput(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*NewTicket){
		"short subject":   func(n *NewTicket) { n.Subject = "Help" },
		"short content":   func(n *NewTicket) { n.Content = "too short" },
		"bad priority":    func(n *NewTicket) { n.Priority = "URGENT" },
		"missing app":     func(n *NewTicket) { n.ApplicationID = " " },
		"missing user id": func(n *NewTicket) { n.UserID = "" },
	}
	for name, mutate := range cases {
		in := validTicket()
		mutate(&in)
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, auth.ErrInvalidInput, name)
	}
	assert.Empty(t, rec.types())
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	other := validTicket()
	other.ApplicationID = "app-2"
	second, err := svc.Create(ctx, other)
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	third, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	scoped, err := svc.List(ctx, Filter{ApplicationID: "app-1"})
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, third.ID, scoped[0].ID)
}

func TestAddMessageBumpsUpdatedAt(t *testing.T) {
	svc, rec, now := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	_, err = svc.AddMessage(ctx, created.ID, "agent-1", "Looking into it right now.")
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.True(t, got.UpdatedAt.Equal(*now))
	assert.Equal(t, []stream.EventType{stream.TicketCreated, stream.MessageAdded}, rec.types())

	_, err = svc.AddMessage(ctx, created.ID, "agent-1", "short")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	_, err = svc.AddMessage(ctx, "missing", "agent-1", "Looking into it right now.")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)
	assert.Equal(t, stream.StatusChanged, rec.types()[1])

	_, err = svc.UpdateStatus(ctx, created.ID, "ARCHIVED")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	_, err = svc.UpdateStatus(ctx, "missing", "CLOSED")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

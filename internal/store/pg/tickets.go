package pg

import (
	"context"
	"database/sql"
	"time"

	"eeytech.com/console/internal/tickets"
)

const ticketColumns = `id, application_id, user_id, subject, status, priority, created_at, updated_at`

func scanTicket(row rowScanner) (tickets.Ticket, error) {
	var t tickets.Ticket
	err := row.Scan(&t.ID, &t.ApplicationID, &t.UserID, &t.Subject, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTicket inserts the ticket and its first message in one transaction.
func (s *Store) CreateTicket(ctx context.Context, t tickets.Ticket, first tickets.Message) (tickets.Ticket, error) {
	var created tickets.Ticket
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = scanTicket(tx.QueryRowContext(ctx, `
			insert into core.tickets (id, application_id, user_id, subject, status, priority, created_at, updated_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
			returning `+ticketColumns,
			t.ID, t.ApplicationID, t.UserID, t.Subject, t.Status, t.Priority, t.CreatedAt, t.UpdatedAt))
		if err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, `
			insert into core.ticket_messages (id, ticket_id, user_id, content, created_at)
			values ($1, $2, $3, $4, $5)
		`, first.ID, created.ID, first.UserID, first.Content, first.CreatedAt); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return tickets.Ticket{}, err
	}
	return created, nil
}

func (s *Store) ListTickets(ctx context.Context, f tickets.Filter) ([]tickets.Ticket, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+ticketColumns+`
		from core.tickets
		where ($1::uuid is null or application_id = $1::uuid)
		order by created_at desc, id desc
	`, nullIfEmpty(f.ApplicationID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tickets.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (tickets.Ticket, error) {
	if s.db == nil {
		return tickets.Ticket{}, errNoDB
	}
	t, err := scanTicket(s.db.QueryRowContext(ctx, `select `+ticketColumns+` from core.tickets where id = $1`, id))
	if err != nil {
		return tickets.Ticket{}, mapError(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, ticket_id, user_id, content, created_at
		from core.ticket_messages
		where ticket_id = $1
		order by created_at, id
	`, id)
	if err != nil {
		return tickets.Ticket{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m tickets.Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return tickets.Ticket{}, err
		}
		t.Messages = append(t.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return tickets.Ticket{}, err
	}
	return t, nil
}

func (s *Store) AddMessage(ctx context.Context, m tickets.Message) (tickets.Message, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `update core.tickets set updated_at = $2 where id = $1`, m.TicketID, m.CreatedAt)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			insert into core.ticket_messages (id, ticket_id, user_id, content, created_at)
			values ($1, $2, $3, $4, $5)
		`, m.ID, m.TicketID, m.UserID, m.Content, m.CreatedAt)
		return mapError(err)
	})
	if err != nil {
		return tickets.Message{}, err
	}
	return m, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status tickets.Status, at time.Time) (tickets.Ticket, error) {
	if s.db == nil {
		return tickets.Ticket{}, errNoDB
	}
	t, err := scanTicket(s.db.QueryRowContext(ctx, `
		update core.tickets set status = $2, updated_at = $3
		where id = $1
		returning `+ticketColumns,
		id, status, at))
	if err != nil {
		return tickets.Ticket{}, mapError(err)
	}
	return t, nil
}

package pg

import (
	"context"
	"time"

	"eeytech.com/console/internal/auth"
)

func (s *Store) CreateSession(ctx context.Context, rec auth.SessionRecord) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into core.sessions (id, user_id, token, expires_at, created_at)
		values ($1, $2, $3, $4, $5)
	`, rec.ID, rec.UserID, rec.Token, rec.ExpiresAt, rec.CreatedAt)
	return mapError(err)
}

func (s *Store) FindSession(ctx context.Context, token string) (auth.SessionRecord, error) {
	if s.db == nil {
		return auth.SessionRecord{}, errNoDB
	}
	var rec auth.SessionRecord
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token, expires_at, created_at
		from core.sessions
		where token = $1
	`, token).Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		return auth.SessionRecord{}, mapError(err)
	}
	return rec, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from core.sessions where token = $1`, token)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from core.sessions where user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from core.sessions where expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

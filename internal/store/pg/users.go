package pg

import (
	"context"
	"database/sql"
	"strings"

	"eeytech.com/console/internal/auth"
)

const userColumns = `id, email, name, password_hash, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var (
		u    auth.User
		name sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		return auth.User{}, err
	}
	u.Name = name.String
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		insert into core.users (id, email, name, password_hash, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6)
		returning `+userColumns,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), nullIfEmpty(u.Name), u.PasswordHash, u.Active, u.CreatedAt)
	created, err := scanUser(row)
	if err != nil {
		return auth.User{}, mapError(err)
	}
	return created, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from core.users where id = $1`, id))
	if err != nil {
		return auth.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from core.users where email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return auth.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from core.users order by email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `update core.users set is_active = $2 where id = $1`, id, active)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

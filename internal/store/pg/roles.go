package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"eeytech.com/console/internal/auth"
)

func (s *Store) CreateRole(ctx context.Context, role auth.Role) (auth.Role, error) {
	var created auth.Role
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var desc sql.NullString
		err := tx.QueryRowContext(ctx, `
			insert into core.roles (id, application_id, name, slug, description, created_at)
			values ($1, $2, $3, $4, $5, $6)
			returning id, application_id, name, slug, description, created_at
		`, role.ID, role.ApplicationID, role.Name, role.Slug, nullIfEmpty(role.Description), role.CreatedAt).
			Scan(&created.ID, &created.ApplicationID, &created.Name, &created.Slug, &desc, &created.CreatedAt)
		if err != nil {
			return mapError(err)
		}
		created.Description = desc.String
		if err := insertRoleGrants(ctx, tx, created.ID, role.Grants); err != nil {
			return err
		}
		created.Grants = role.Grants
		return nil
	})
	if err != nil {
		return auth.Role{}, err
	}
	return created, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	var (
		role auth.Role
		desc sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, application_id, name, slug, description, created_at
		from core.roles
		where id = $1
	`, id).Scan(&role.ID, &role.ApplicationID, &role.Name, &role.Slug, &desc, &role.CreatedAt)
	if err != nil {
		return auth.Role{}, mapError(err)
	}
	role.Description = desc.String

	rows, err := s.db.QueryContext(ctx, `
		select module_slug, actions
		from core.role_permissions
		where role_id = $1
		order by module_slug
	`, id)
	if err != nil {
		return auth.Role{}, err
	}
	role.Grants, err = scanGrants(rows)
	if err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

// ListRoles returns the application's roles with their grants.
func (s *Store) ListRoles(ctx context.Context, applicationID string) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.application_id, r.name, r.slug, r.description, r.created_at,
		       rp.module_slug, rp.actions
		from core.roles r
		left join core.role_permissions rp on rp.role_id = r.id
		where r.application_id = $1
		order by r.name, r.id, rp.module_slug
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := pgtype.NewMap()
	var roles []auth.Role
	for rows.Next() {
		var (
			role    auth.Role
			desc    sql.NullString
			module  sql.NullString
			actions actionsColumn
		)
		if err := rows.Scan(&role.ID, &role.ApplicationID, &role.Name, &role.Slug, &desc, &role.CreatedAt, &module, actions.scanner(m)); err != nil {
			return nil, err
		}
		if n := len(roles); n == 0 || roles[n-1].ID != role.ID {
			role.Description = desc.String
			roles = append(roles, role)
		}
		if module.Valid {
			acts, err := actions.actions()
			if err != nil {
				return nil, err
			}
			last := &roles[len(roles)-1]
			last.Grants = append(last.Grants, auth.Grant{ModuleSlug: module.String, Actions: acts})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// SetRoleGrants swaps every grant of the role in one transaction.
func (s *Store) SetRoleGrants(ctx context.Context, roleID string, grants []auth.Grant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `select 1 from core.roles where id = $1 for update`, roleID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return auth.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `delete from core.role_permissions where role_id = $1`, roleID); err != nil {
			return err
		}
		return insertRoleGrants(ctx, tx, roleID, grants)
	})
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into core.user_roles (user_id, role_id)
		values ($1, $2)
	`, userID, roleID)
	return mapError(err)
}

func (s *Store) RemoveRole(ctx context.Context, userID, roleID string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		delete from core.user_roles
		where user_id = $1 and role_id = $2
	`, userID, roleID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func insertRoleGrants(ctx context.Context, tx *sql.Tx, roleID string, grants []auth.Grant) error {
	for _, g := range grants {
		if _, err := tx.ExecContext(ctx, `
			insert into core.role_permissions (id, role_id, module_slug, actions)
			values ($1, $2, $3, $4::text[])
		`, uuid.NewString(), roleID, g.ModuleSlug, actionsParam(g.Actions)); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanGrants(rows *sql.Rows) ([]auth.Grant, error) {
	defer rows.Close()
	m := pgtype.NewMap()
	var grants []auth.Grant
	for rows.Next() {
		var (
			g       auth.Grant
			actions actionsColumn
		)
		if err := rows.Scan(&g.ModuleSlug, actions.scanner(m)); err != nil {
			return nil, err
		}
		acts, err := actions.actions()
		if err != nil {
			return nil, err
		}
		g.Actions = acts
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

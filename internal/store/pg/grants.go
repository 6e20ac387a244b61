package pg

import (
	"context"
	"database/sql"

	"eeytech.com/console/internal/auth"
)

// RoleGrantsForUser returns every grant reachable through the user's roles
// in one application. Overlaps are left for auth.MergeGrants to fold.
func (s *Store) RoleGrantsForUser(ctx context.Context, userID, applicationID string) ([]auth.Grant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select rp.module_slug, rp.actions
		from core.user_roles ur
		join core.roles r on r.id = ur.role_id
		join core.role_permissions rp on rp.role_id = r.id
		where ur.user_id = $1 and r.application_id = $2
	`, userID, applicationID)
	if err != nil {
		return nil, err
	}
	return scanGrants(rows)
}

func (s *Store) DirectGrantsForUser(ctx context.Context, userID, applicationID string) ([]auth.Grant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select module_slug, actions
		from core.user_module_permissions
		where user_id = $1 and application_id = $2
		order by module_slug
	`, userID, applicationID)
	if err != nil {
		return nil, err
	}
	return scanGrants(rows)
}

// ReplaceDirectGrants deletes and re-inserts the user's direct grants for one
// application inside a single transaction, so readers see either the old or
// the new set.
func (s *Store) ReplaceDirectGrants(ctx context.Context, userID, applicationID string, grants []auth.Grant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			delete from core.user_module_permissions
			where user_id = $1 and application_id = $2
		`, userID, applicationID); err != nil {
			return err
		}
		for _, g := range grants {
			if _, err := tx.ExecContext(ctx, `
				insert into core.user_module_permissions (user_id, application_id, module_slug, actions)
				values ($1, $2, $3, $4::text[])
			`, userID, applicationID, g.ModuleSlug, actionsParam(g.Actions)); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

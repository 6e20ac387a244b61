package pg

import (
	"context"

	"eeytech.com/console/internal/auth"
)

const applicationColumns = `id, name, slug, api_key, created_at`

func scanApplication(row rowScanner) (auth.Application, error) {
	var app auth.Application
	err := row.Scan(&app.ID, &app.Name, &app.Slug, &app.APIKey, &app.CreatedAt)
	return app, err
}

func (s *Store) CreateApplication(ctx context.Context, app auth.Application) (auth.Application, error) {
	if s.db == nil {
		return auth.Application{}, errNoDB
	}
	created, err := scanApplication(s.db.QueryRowContext(ctx, `
		insert into core.applications (id, name, slug, api_key, created_at)
		values ($1, $2, $3, $4, $5)
		returning `+applicationColumns,
		app.ID, app.Name, app.Slug, app.APIKey, app.CreatedAt))
	if err != nil {
		return auth.Application{}, mapError(err)
	}
	return created, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (auth.Application, error) {
	return s.findApplication(ctx, `id`, id)
}

func (s *Store) FindApplicationBySlug(ctx context.Context, slug string) (auth.Application, error) {
	return s.findApplication(ctx, `slug`, slug)
}

func (s *Store) FindApplicationByAPIKey(ctx context.Context, apiKey string) (auth.Application, error) {
	if apiKey == "" {
		return auth.Application{}, auth.ErrNotFound
	}
	return s.findApplication(ctx, `api_key`, apiKey)
}

// findApplication looks up one row by a fixed column name chosen by callers in
// this file, never by user input.
func (s *Store) findApplication(ctx context.Context, column, value string) (auth.Application, error) {
	if s.db == nil {
		return auth.Application{}, errNoDB
	}
	app, err := scanApplication(s.db.QueryRowContext(ctx,
		`select `+applicationColumns+` from core.applications where `+column+` = $1`, value))
	if err != nil {
		return auth.Application{}, mapError(err)
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context) ([]auth.Application, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+applicationColumns+` from core.applications order by slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []auth.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

// DeleteApplication relies on foreign key cascades for modules, roles and
// direct grants.
func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from core.applications where id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s *Store) CreateModule(ctx context.Context, m auth.Module) (auth.Module, error) {
	if s.db == nil {
		return auth.Module{}, errNoDB
	}
	var out auth.Module
	err := s.db.QueryRowContext(ctx, `
		insert into core.modules (id, application_id, name, slug)
		values ($1, $2, $3, $4)
		returning id, application_id, name, slug
	`, m.ID, m.ApplicationID, m.Name, m.Slug).Scan(&out.ID, &out.ApplicationID, &out.Name, &out.Slug)
	if err != nil {
		return auth.Module{}, mapError(err)
	}
	return out, nil
}

func (s *Store) ListModules(ctx context.Context, applicationID string) ([]auth.Module, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, application_id, name, slug
		from core.modules
		where application_id = $1
		order by slug
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []auth.Module
	for rows.Next() {
		var m auth.Module
		if err := rows.Scan(&m.ID, &m.ApplicationID, &m.Name, &m.Slug); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mods, nil
}

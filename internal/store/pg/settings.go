package pg

import (
	"context"
	"database/sql"
	"errors"

	"eeytech.com/console/internal/auth"
)

// GetSettings returns the singleton row, or the defaults before it exists.
func (s *Store) GetSettings(ctx context.Context) (auth.Settings, error) {
	if s.db == nil {
		return auth.Settings{}, errNoDB
	}
	var st auth.Settings
	err := s.db.QueryRowContext(ctx, `
		select instance_name, api_url, session_timeout, updated_at
		from core.system_settings
		where id = $1
	`, auth.SettingsID).Scan(&st.InstanceName, &st.APIURL, &st.SessionTimeout, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.DefaultSettings(), nil
	}
	if err != nil {
		return auth.Settings{}, err
	}
	return st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st auth.Settings) (auth.Settings, error) {
	if s.db == nil {
		return auth.Settings{}, errNoDB
	}
	var out auth.Settings
	err := s.db.QueryRowContext(ctx, `
		insert into core.system_settings (id, instance_name, api_url, session_timeout, updated_at)
		values ($1, $2, $3, $4, $5)
		on conflict (id) do update
		set instance_name = excluded.instance_name,
		    api_url = excluded.api_url,
		    session_timeout = excluded.session_timeout,
		    updated_at = excluded.updated_at
		returning instance_name, api_url, session_timeout, updated_at
	`, auth.SettingsID, st.InstanceName, st.APIURL, st.SessionTimeout, st.UpdatedAt).
		Scan(&out.InstanceName, &out.APIURL, &out.SessionTimeout, &out.UpdatedAt)
	if err != nil {
		return auth.Settings{}, err
	}
	return out, nil
}

package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eeytech.com/console/internal/auth"
)

// consoleModules are granted FULL to the bootstrap administrator.
var consoleModules = []string{
	auth.ModuleApplications,
	auth.ModuleUsers,
	auth.ModuleRoles,
	auth.ModuleTickets,
	auth.ModuleSettings,
}

// BootstrapInput describes the first administrator of a fresh install.
type BootstrapInput struct {
	AdminAppSlug string
	Email        string
	Password     string
}

// BootstrapResult reports what Bootstrap created or reused.
type BootstrapResult struct {
	Application auth.Application
	User        auth.User
	CreatedApp  bool
	CreatedUser bool
}

// Bootstrap ensures the admin application and an administrator with FULL
// grants on every console module exist. It is safe to re-run: existing
// records are reused and an existing password is left untouched.
func Bootstrap(ctx context.Context, store auth.Store, hasher auth.PasswordHasher, in BootstrapInput) (BootstrapResult, error) {
	var res BootstrapResult
	slug := strings.TrimSpace(in.AdminAppSlug)
	if slug == "" {
		slug = auth.DefaultAdminApplication
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 8 {
		return res, fmt.Errorf("%w: bootstrap needs an email and a password of at least 8 characters", auth.ErrInvalidInput)
	}
	now := time.Now().UTC()

	app, err := store.FindApplicationBySlug(ctx, slug)
	if errors.Is(err, auth.ErrNotFound) {
		key, keyErr := auth.NewAPIKey()
		if keyErr != nil {
			return res, keyErr
		}
		app, err = store.CreateApplication(ctx, auth.Application{
			ID:        uuid.NewString(),
			Name:      "Eeytech Admin",
			Slug:      slug,
			APIKey:    key,
			CreatedAt: now,
		})
		res.CreatedApp = err == nil
	}
	if err != nil {
		return res, fmt.Errorf("admin application: %w", err)
	}
	res.Application = app

	user, err := store.FindUserByEmail(ctx, email)
	if errors.Is(err, auth.ErrNotFound) {
		hash, hashErr := hasher.Hash(in.Password)
		if hashErr != nil {
			return res, hashErr
		}
		user, err = store.CreateUser(ctx, auth.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Active:       true,
			CreatedAt:    now,
		})
		res.CreatedUser = err == nil
	}
	if err != nil {
		return res, fmt.Errorf("admin user: %w", err)
	}
	res.User = user

	existing, err := store.DirectGrantsForUser(ctx, user.ID, app.ID)
	if err != nil {
		return res, err
	}
	full := make([]auth.Grant, 0, len(consoleModules))
	for _, module := range consoleModules {
		full = append(full, auth.Grant{ModuleSlug: module, Actions: []auth.Action{auth.ActionFull}})
	}
	merged := auth.MergeGrants(existing, full).Grants()
	if err := store.ReplaceDirectGrants(ctx, user.ID, app.ID, merged); err != nil {
		return res, fmt.Errorf("admin grants: %w", err)
	}
	return res, nil
}

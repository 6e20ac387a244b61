package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	UserStore
	ApplicationStore
	RoleStore
	GrantStore
	SessionStore
	SettingsStore
}

// UserStore manages identities.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
}

// ApplicationStore manages tenant applications and their modules.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app Application) (Application, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	FindApplicationBySlug(ctx context.Context, slug string) (Application, error)
	FindApplicationByAPIKey(ctx context.Context, apiKey string) (Application, error)
	ListApplications(ctx context.Context) ([]Application, error)
	DeleteApplication(ctx context.Context, id string) error

	CreateModule(ctx context.Context, m Module) (Module, error)
	ListModules(ctx context.Context, applicationID string) ([]Module, error)
}

// RoleStore manages roles, their grants and user assignments.
type RoleStore interface {
	CreateRole(ctx context.Context, role Role) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context, applicationID string) ([]Role, error)
	// SetRoleGrants replaces all grants of a role atomically.
	SetRoleGrants(ctx context.Context, roleID string, grants []Grant) error
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}

// GrantStore exposes the two permission sources the resolver merges.
type GrantStore interface {
	// RoleGrantsForUser returns grants reachable through the user's roles
	// that belong to applicationID.
	RoleGrantsForUser(ctx context.Context, userID, applicationID string) ([]Grant, error)
	DirectGrantsForUser(ctx context.Context, userID, applicationID string) ([]Grant, error)
	// ReplaceDirectGrants swaps the user's direct grants for one application
	// in a single transaction.
	ReplaceDirectGrants(ctx context.Context, userID, applicationID string, grants []Grant) error
}

// SessionStore manages refresh-token session records.
type SessionStore interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	FindSession(ctx context.Context, token string) (SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SettingsStore reads and upserts the singleton settings row.
type SettingsStore interface {
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) (Settings, error)
}

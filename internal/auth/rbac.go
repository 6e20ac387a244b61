package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ModuleApplications = "applications"
	ModuleUsers        = "users"
	ModuleRoles        = "roles"
	ModuleTickets      = "tickets"
	ModuleSettings     = "settings"
)

const minPasswordLength = 8

// AdminService implements the console's administrative operations. Every
// method passes the Gate before touching the store.
type AdminService struct {
	store    Store
	gate     *Gate
	hasher   PasswordHasher
	adminApp string
	now      func() time.Time
}

// NewAdminService wires the store and gate. adminApp scopes user, role and
// settings operations to the console's own application.
func NewAdminService(store Store, gate *Gate, hasher PasswordHasher, adminApp string) (*AdminService, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if gate == nil {
		return nil, errors.New("auth: gate is required")
	}
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if adminApp = strings.TrimSpace(adminApp); adminApp == "" {
		adminApp = DefaultAdminApplication
	}
	return &AdminService{store: store, gate: gate, hasher: hasher, adminApp: adminApp, now: time.Now}, nil
}

func (s *AdminService) require(ctx context.Context, module string, action Action) error {
	_, err := s.gate.RequireModulePermission(ctx, module, action, s.adminApp)
	return err
}

// CreateApplication registers a tenant application with a fresh API key.
func (s *AdminService) CreateApplication(ctx context.Context, name, slug string) (Application, error) {
	if err := s.require(ctx, ModuleApplications, ActionWrite); err != nil {
		return Application{}, err
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 3 {
		return Application{}, fmt.Errorf("%w: name must have at least 3 characters", ErrInvalidInput)
	}
	slug = strings.TrimSpace(slug)
	if len(slug) < 3 || !ValidSlug(slug) {
		return Application{}, fmt.Errorf("%w: slug must match ^[a-z0-9-]+$ and have at least 3 characters", ErrInvalidInput)
	}
	key, err := NewAPIKey()
	if err != nil {
		return Application{}, err
	}
	return s.store.CreateApplication(ctx, Application{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		APIKey:    key,
		CreatedAt: s.now().UTC(),
	})
}

func (s *AdminService) ListApplications(ctx context.Context) ([]Application, error) {
	if err := s.require(ctx, ModuleApplications, ActionRead); err != nil {
		return nil, err
	}
	return s.store.ListApplications(ctx)
}

// DeleteApplication removes the application with its modules and roles and
// returns what was deleted so callers can drop cached credentials.
func (s *AdminService) DeleteApplication(ctx context.Context, id string) (Application, error) {
	if err := s.require(ctx, ModuleApplications, ActionWrite); err != nil {
		return Application{}, err
	}
	id, err := requireUUID("application_id", id)
	if err != nil {
		return Application{}, err
	}
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (s *AdminService) CreateModule(ctx context.Context, applicationID, name, slug string) (Module, error) {
	if err := s.require(ctx, ModuleApplications, ActionWrite); err != nil {
		return Module{}, err
	}
	applicationID, err := requireUUID("application_id", applicationID)
	if err != nil {
		return Module{}, err
	}
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if len([]rune(name)) < 2 || len(slug) < 2 {
		return Module{}, fmt.Errorf("%w: module name and slug must have at least 2 characters", ErrInvalidInput)
	}
	return s.store.CreateModule(ctx, Module{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Name:          name,
		Slug:          slug,
	})
}

func (s *AdminService) ListModules(ctx context.Context, applicationID string) ([]Module, error) {
	if err := s.require(ctx, ModuleApplications, ActionRead); err != nil {
		return nil, err
	}
	applicationID, err := requireUUID("application_id", applicationID)
	if err != nil {
		return nil, err
	}
	return s.store.ListModules(ctx, applicationID)
}

func (s *AdminService) CreateUser(ctx context.Context, email, password, name string) (User, error) {
	if err := s.require(ctx, ModuleUsers, ActionWrite); err != nil {
		return User{}, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}
	return s.store.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	})
}

func (s *AdminService) ListUsers(ctx context.Context) ([]User, error) {
	if err := s.require(ctx, ModuleUsers, ActionRead); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// SetUserActive activates or deactivates a user. Users are never deleted.
func (s *AdminService) SetUserActive(ctx context.Context, userID string, active bool) error {
	if err := s.require(ctx, ModuleUsers, ActionWrite); err != nil {
		return err
	}
	userID, err := requireUUID("user_id", userID)
	if err != nil {
		return err
	}
	return s.store.SetUserActive(ctx, userID, active)
}

func (s *AdminService) UserPermissions(ctx context.Context, userID, applicationID string) ([]Grant, error) {
	if err := s.require(ctx, ModuleUsers, ActionRead); err != nil {
		return nil, err
	}
	userID, err := requireUUID("user_id", userID)
	if err != nil {
		return nil, err
	}
	applicationID, err = requireUUID("application_id", applicationID)
	if err != nil {
		return nil, err
	}
	return s.store.DirectGrantsForUser(ctx, userID, applicationID)
}

// ReplaceUserPermissions swaps the user's direct grants for one application.
// Grants with no actions are dropped; the swap is atomic in the store.
func (s *AdminService) ReplaceUserPermissions(ctx context.Context, userID, applicationID string, grants []Grant) error {
	if err := s.require(ctx, ModuleUsers, ActionWrite); err != nil {
		return err
	}
	userID, err := requireUUID("user_id", userID)
	if err != nil {
		return err
	}
	applicationID, err = requireUUID("application_id", applicationID)
	if err != nil {
		return err
	}
	normalized, err := normalizeGrants(grants)
	if err != nil {
		return err
	}
	return s.store.ReplaceDirectGrants(ctx, userID, applicationID, normalized)
}

func (s *AdminService) CreateRole(ctx context.Context, applicationID, name, description string) (Role, error) {
	if err := s.require(ctx, ModuleRoles, ActionWrite); err != nil {
		return Role{}, err
	}
	applicationID, err := requireUUID("application_id", applicationID)
	if err != nil {
		return Role{}, err
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 3 {
		return Role{}, fmt.Errorf("%w: role name must have at least 3 characters", ErrInvalidInput)
	}
	slug := Slugify(name)
	if slug == "" {
		return Role{}, fmt.Errorf("%w: role name must contain letters or digits", ErrInvalidInput)
	}
	return s.store.CreateRole(ctx, Role{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Name:          name,
		Slug:          slug,
		Description:   strings.TrimSpace(description),
		CreatedAt:     s.now().UTC(),
	})
}

func (s *AdminService) ListRoles(ctx context.Context, applicationID string) ([]Role, error) {
	if err := s.require(ctx, ModuleRoles, ActionRead); err != nil {
		return nil, err
	}
	applicationID, err := requireUUID("application_id", applicationID)
	if err != nil {
		return nil, err
	}
	return s.store.ListRoles(ctx, applicationID)
}

func (s *AdminService) SetRolePermissions(ctx context.Context, roleID string, grants []Grant) error {
	if err := s.require(ctx, ModuleRoles, ActionWrite); err != nil {
		return err
	}
	roleID, err := requireUUID("role_id", roleID)
	if err != nil {
		return err
	}
	normalized, err := normalizeGrants(grants)
	if err != nil {
		return err
	}
	return s.store.SetRoleGrants(ctx, roleID, normalized)
}

func (s *AdminService) AssignRole(ctx context.Context, userID, roleID string) error {
	if err := s.require(ctx, ModuleUsers, ActionWrite); err != nil {
		return err
	}
	userID, err := requireUUID("user_id", userID)
	if err != nil {
		return err
	}
	roleID, err = requireUUID("role_id", roleID)
	if err != nil {
		return err
	}
	return s.store.AssignRole(ctx, userID, roleID)
}

func (s *AdminService) RemoveRole(ctx context.Context, userID, roleID string) error {
	if err := s.require(ctx, ModuleUsers, ActionWrite); err != nil {
		return err
	}
	userID, err := requireUUID("user_id", userID)
	if err != nil {
		return err
	}
	roleID, err = requireUUID("role_id", roleID)
	if err != nil {
		return err
	}
	return s.store.RemoveRole(ctx, userID, roleID)
}

func (s *AdminService) Settings(ctx context.Context) (Settings, error) {
	if err := s.require(ctx, ModuleSettings, ActionRead); err != nil {
		return Settings{}, err
	}
	return s.store.GetSettings(ctx)
}

func (s *AdminService) UpdateSettings(ctx context.Context, upd Settings) (Settings, error) {
	if err := s.require(ctx, ModuleSettings, ActionWrite); err != nil {
		return Settings{}, err
	}
	upd.InstanceName = strings.TrimSpace(upd.InstanceName)
	if len([]rune(upd.InstanceName)) < 3 {
		return Settings{}, fmt.Errorf("%w: instance name must have at least 3 characters", ErrInvalidInput)
	}
	upd.APIURL = strings.TrimSpace(upd.APIURL)
	if u, err := url.Parse(upd.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Settings{}, fmt.Errorf("%w: api url must be absolute", ErrInvalidInput)
	}
	upd.SessionTimeout = strings.TrimSpace(upd.SessionTimeout)
	if upd.SessionTimeout == "" {
		return Settings{}, fmt.Errorf("%w: session timeout is required", ErrInvalidInput)
	}
	upd.UpdatedAt = s.now().UTC()
	return s.store.SaveSettings(ctx, upd)
}

func requireUUID(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if _, err := uuid.Parse(v); err != nil {
		return "", fmt.Errorf("%w: %s must be a uuid", ErrInvalidInput, field)
	}
	return v, nil
}

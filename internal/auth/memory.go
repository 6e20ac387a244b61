package auth

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type directKey struct {
	userID, applicationID string
}

// MemoryStore is an in-process Store. A single mutex guards every map, so
// multi-row replacements are atomic for concurrent readers.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]User
	apps         map[string]Application
	modules      map[string]Module
	roles        map[string]Role
	userRoles    map[string]map[string]struct{}
	directGrants map[directKey][]Grant
	sessions     map[string]SessionRecord
	settings     *Settings
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]User),
		apps:         make(map[string]Application),
		modules:      make(map[string]Module),
		roles:        make(map[string]Role),
		userRoles:    make(map[string]map[string]struct{}),
		directGrants: make(map[directKey][]Grant),
		sessions:     make(map[string]SessionRecord),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return User{}, ErrConflict
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return User{}, ErrConflict
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *MemoryStore) SetUserActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	s.users[id] = u
	return nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, app Application) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if existing.Slug == app.Slug || existing.APIKey == app.APIKey {
			return Application{}, ErrConflict
		}
	}
	s.apps[app.ID] = app
	return app, nil
}

func (s *MemoryStore) GetApplication(_ context.Context, id string) (Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (s *MemoryStore) FindApplicationBySlug(_ context.Context, slug string) (Application, error) {
	return s.findApplication(func(a Application) bool { return a.Slug == slug })
}

func (s *MemoryStore) FindApplicationByAPIKey(_ context.Context, apiKey string) (Application, error) {
	if apiKey == "" {
		return Application{}, ErrNotFound
	}
	return s.findApplication(func(a Application) bool { return a.APIKey == apiKey })
}

func (s *MemoryStore) findApplication(match func(Application) bool) (Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if match(app) {
			return app, nil
		}
	}
	return Application{}, ErrNotFound
}

func (s *MemoryStore) ListApplications(_ context.Context) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// DeleteApplication cascades to modules, roles and direct grants.
func (s *MemoryStore) DeleteApplication(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[id]; !ok {
		return ErrNotFound
	}
	delete(s.apps, id)
	for mid, m := range s.modules {
		if m.ApplicationID == id {
			delete(s.modules, mid)
		}
	}
	for rid, r := range s.roles {
		if r.ApplicationID == id {
			delete(s.roles, rid)
			for _, set := range s.userRoles {
				delete(set, rid)
			}
		}
	}
	for k := range s.directGrants {
		if k.applicationID == id {
			delete(s.directGrants, k)
		}
	}
	return nil
}

func (s *MemoryStore) CreateModule(_ context.Context, m Module) (Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[m.ApplicationID]; !ok {
		return Module{}, ErrNotFound
	}
	for _, existing := range s.modules {
		if existing.ApplicationID == m.ApplicationID && existing.Slug == m.Slug {
			return Module{}, ErrConflict
		}
	}
	s.modules[m.ID] = m
	return m, nil
}

func (s *MemoryStore) ListModules(_ context.Context, applicationID string) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Module
	for _, m := range s.modules {
		if m.ApplicationID == applicationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *MemoryStore) CreateRole(_ context.Context, role Role) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[role.ApplicationID]; !ok {
		return Role{}, ErrNotFound
	}
	for _, existing := range s.roles {
		if existing.ApplicationID == role.ApplicationID && existing.Slug == role.Slug {
			return Role{}, ErrConflict
		}
	}
	role.Grants = cloneGrants(role.Grants)
	s.roles[role.ID] = role
	return role, nil
}

func (s *MemoryStore) GetRole(_ context.Context, id string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Grants = cloneGrants(role.Grants)
	return role, nil
}

func (s *MemoryStore) ListRoles(_ context.Context, applicationID string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Role
	for _, r := range s.roles {
		if r.ApplicationID == applicationID {
			r.Grants = cloneGrants(r.Grants)
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) SetRoleGrants(_ context.Context, roleID string, grants []Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	role.Grants = cloneGrants(grants)
	s.roles[roleID] = role
	return nil
}

func (s *MemoryStore) AssignRole(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	set, ok := s.userRoles[userID]
	if !ok {
		set = make(map[string]struct{})
		s.userRoles[userID] = set
	}
	if _, exists := set[roleID]; exists {
		return ErrConflict
	}
	set[roleID] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveRole(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.userRoles[userID]
	if _, ok := set[roleID]; !ok {
		return ErrNotFound
	}
	delete(set, roleID)
	return nil
}

func (s *MemoryStore) RoleGrantsForUser(_ context.Context, userID, applicationID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for roleID := range s.userRoles[userID] {
		role, ok := s.roles[roleID]
		if !ok || role.ApplicationID != applicationID {
			continue
		}
		out = append(out, cloneGrants(role.Grants)...)
	}
	return out, nil
}

func (s *MemoryStore) DirectGrantsForUser(_ context.Context, userID, applicationID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGrants(s.directGrants[directKey{userID, applicationID}]), nil
}

func (s *MemoryStore) ReplaceDirectGrants(_ context.Context, userID, applicationID string, grants []Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.apps[applicationID]; !ok {
		return ErrNotFound
	}
	key := directKey{userID, applicationID}
	if len(grants) == 0 {
		delete(s.directGrants, key)
		return nil
	}
	s.directGrants[key] = cloneGrants(grants)
	return nil
}

func (s *MemoryStore) CreateSession(_ context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[rec.Token]; ok {
		return ErrConflict
	}
	s.sessions[rec.Token] = rec
	return nil
}

func (s *MemoryStore) FindSession(_ context.Context, token string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[token]
	if !ok {
		return SessionRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) DeleteUserSessions(_ context.Context, userID string) (int64, error) {
	return s.deleteSessions(func(rec SessionRecord) bool { return rec.UserID == userID }), nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	return s.deleteSessions(func(rec SessionRecord) bool { return !now.Before(rec.ExpiresAt) }), nil
}

func (s *MemoryStore) deleteSessions(match func(SessionRecord) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, rec := range s.sessions {
		if match(rec) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

func (s *MemoryStore) GetSettings(_ context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return settings, nil
}

func cloneGrants(grants []Grant) []Grant {
	if grants == nil {
		return nil
	}
	out := make([]Grant, len(grants))
	for i, g := range grants {
		out[i] = Grant{ModuleSlug: g.ModuleSlug, Actions: slices.Clone(g.Actions)}
	}
	return out
}

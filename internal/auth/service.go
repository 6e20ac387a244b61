package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eeytech.com/console/internal/obs"
)

// DefaultAdminApplication is the slug of the console's own application.
const DefaultAdminApplication = "eeytech-admin"

// Session is the result of a successful login or refresh.
type Session struct {
	User             User
	Application      string
	Permissions      PermissionMap
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager coordinates login, refresh and logout.
type SessionManager struct {
	store    Store
	tokens   *TokenService
	resolver *Resolver
	hasher   PasswordHasher
	adminApp string
	now      func() time.Time
	logger   *slog.Logger
}

// ServiceOption configures SessionManager behavior.
type ServiceOption func(*SessionManager) error

// WithAdminApplication overrides the slug used as the login default and as
// the refresh scope.
func WithAdminApplication(slug string) ServiceOption {
	return func(m *SessionManager) error {
		if slug = strings.TrimSpace(slug); slug != "" {
			m.adminApp = slug
		}
		return nil
	}
}

// WithPasswordHasher replaces the bcrypt hasher.
func WithPasswordHasher(h PasswordHasher) ServiceOption {
	return func(m *SessionManager) error {
		if h == nil {
			return errors.New("auth: password hasher is nil")
		}
		m.hasher = h
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(m *SessionManager) error {
		if fn != nil {
			m.now = fn
		}
		return nil
	}
}

// WithLogger sets the logger used for failures that are not surfaced.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(m *SessionManager) error {
		if l != nil {
			m.logger = l
		}
		return nil
	}
}

// NewSessionManager constructs SessionManager with optional configuration.
func NewSessionManager(store Store, tokens *TokenService, opts ...ServiceOption) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, ErrMissingSecret
	}
	resolver, err := NewResolver(store)
	if err != nil {
		return nil, err
	}
	m := &SessionManager{
		store:    store,
		tokens:   tokens,
		resolver: resolver,
		hasher:   BcryptHasher{},
		adminApp: DefaultAdminApplication,
		now:      time.Now,
		logger:   obs.Logger(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AdminApplication returns the configured admin application slug.
func (m *SessionManager) AdminApplication() string { return m.adminApp }

// Tokens exposes the underlying token service.
func (m *SessionManager) Tokens() *TokenService { return m.tokens }

// Login verifies credentials, resolves permissions for applicationSlug and
// issues an access/refresh pair. An unknown application still yields a
// session, with an empty permission map.
func (m *SessionManager) Login(ctx context.Context, email, password, applicationSlug string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := m.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if user.PasswordHash == "" || !m.hasher.Verify(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if !user.Active {
		return Session{}, ErrInvalidCredentials
	}

	target := strings.TrimSpace(applicationSlug)
	if target == "" {
		target = m.adminApp
	}
	perms, err := m.permissionsFor(ctx, user.ID, target)
	if err != nil {
		return Session{}, err
	}

	sess, err := m.issueAccess(user, target, perms)
	if err != nil {
		return Session{}, err
	}
	refresh, refreshExp, err := m.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return Session{}, err
	}
	rec := SessionRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: refreshExp,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return Session{}, err
	}
	sess.RefreshToken = refresh
	sess.RefreshExpiresAt = refreshExp
	return sess, nil
}

// Refresh verifies the refresh token against its session record and mints
// a new access token with permissions re-resolved for the admin
// application. The refresh token itself is not rotated.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	userID, err := m.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, err
	}
	if !user.Active {
		return Session{}, ErrInvalidSession
	}
	perms, err := m.permissionsFor(ctx, user.ID, m.adminApp)
	if err != nil {
		return Session{}, err
	}
	return m.issueAccess(user, m.adminApp, perms)
}

// VerifyRefreshToken requires a valid signature and a live session record
// bound to the same subject. A signed but revoked token is rejected.
func (m *SessionManager) VerifyRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	subject, err := m.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidSession
	}
	rec, err := m.store.FindSession(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}
	if rec.UserID != subject || !m.now().Before(rec.ExpiresAt) {
		return "", ErrInvalidSession
	}
	return subject, nil
}

// Authenticate verifies an access token presented at the boundary.
func (m *SessionManager) Authenticate(accessToken string) (*Claims, error) {
	claims, err := m.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// Logout deletes every session record of the token's subject. It never
// fails: an invalid token or a store error leaves nothing to do beyond
// clearing the transport credential, which is the caller's job.
func (m *SessionManager) Logout(ctx context.Context, accessToken string) {
	if strings.TrimSpace(accessToken) == "" {
		return
	}
	claims, err := m.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return
	}
	n, err := m.store.DeleteUserSessions(ctx, claims.Subject)
	if err != nil {
		m.logger.WarnContext(ctx, "logout: delete sessions failed",
			slog.String("user_id", claims.Subject), slog.Any("error", err))
		return
	}
	m.logger.InfoContext(ctx, "logout", slog.String("user_id", claims.Subject), slog.Int64("sessions_revoked", n))
}

// Revoke deletes the session record of a single refresh token.
func (m *SessionManager) Revoke(ctx context.Context, refreshToken string) error {
	if _, err := m.tokens.ParseRefreshToken(refreshToken); err != nil {
		return ErrInvalidSession
	}
	err := m.store.DeleteSession(ctx, strings.TrimSpace(refreshToken))
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidSession
	}
	return err
}

// PruneExpired removes session records whose expiry has passed.
func (m *SessionManager) PruneExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now().UTC())
}

func (m *SessionManager) permissionsFor(ctx context.Context, userID, applicationSlug string) (PermissionMap, error) {
	app, err := m.store.FindApplicationBySlug(ctx, applicationSlug)
	if errors.Is(err, ErrNotFound) {
		return PermissionMap{}, nil
	}
	if err != nil {
		return nil, err
	}
	return m.resolver.Resolve(ctx, userID, app.ID)
}

func (m *SessionManager) issueAccess(user User, applicationSlug string, perms PermissionMap) (Session, error) {
	token, exp, err := m.tokens.IssueAccessToken(user, applicationSlug, perms)
	if err != nil {
		return Session{}, err
	}
	return Session{
		User:            user,
		Application:     applicationSlug,
		Permissions:     perms,
		AccessToken:     token,
		AccessExpiresAt: exp,
	}, nil
}

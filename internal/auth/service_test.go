package auth

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type sessionFixture struct {
	store   *MemoryStore
	manager *SessionManager
	now     time.Time
	user    User
	acme    Application
	admin   Application
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	ctx := context.Background()
	f := &sessionFixture{store: NewMemoryStore(), now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("p1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.user, err = f.store.CreateUser(ctx, User{ID: "11111111-1111-4111-8111-111111111111", Email: "a@x.com", PasswordHash: hash, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	f.acme, _ = f.store.CreateApplication(ctx, Application{ID: "22222222-2222-4222-8222-222222222222", Name: "Acme", Slug: "acme", APIKey: "ey_acme"})
	f.admin, _ = f.store.CreateApplication(ctx, Application{ID: "33333333-3333-4333-8333-333333333333", Name: "Admin", Slug: DefaultAdminApplication, APIKey: "ey_admin"})

	support, err := f.store.CreateRole(ctx, Role{
		ID:            "44444444-4444-4444-8444-444444444444",
		ApplicationID: f.acme.ID,
		Name:          "Support",
		Slug:          "support",
		Grants:        []Grant{{ModuleSlug: "tickets", Actions: []Action{ActionRead}}},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := f.store.AssignRole(ctx, f.user.ID, support.ID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := f.store.ReplaceDirectGrants(ctx, f.user.ID, f.acme.ID, []Grant{{ModuleSlug: "tickets", Actions: []Action{ActionWrite}}}); err != nil {
		t.Fatalf("ReplaceDirectGrants: %v", err)
	}

	tokens := newTestTokens(t, clock)
	f.manager, err = NewSessionManager(f.store, tokens, WithClock(clock), WithPasswordHasher(hasher))
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return f
}

func TestLoginMergesRoleAndDirectGrants(t *testing.T) {
	f := newSessionFixture(t)
	sess, err := f.manager.Login(context.Background(), "a@x.com", "p1", "acme")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := f.manager.Tokens().VerifyAccessToken(sess.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Application != "acme" {
		t.Fatalf("unexpected application %q", claims.Application)
	}
	if !slices.Equal(claims.Modules["tickets"], []Action{ActionRead, ActionWrite}) {
		t.Fatalf("expected tickets READ+WRITE, got %v", claims.Modules)
	}
	if sess.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
	if _, err := f.store.FindSession(context.Background(), sess.RefreshToken); err != nil {
		t.Fatalf("session record not persisted: %v", err)
	}
}

func TestLoginInvalidCredentialsAreIndistinguishable(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, unknown := f.manager.Login(ctx, "nobody@x.com", "p1", "acme")
	_, wrong := f.manager.Login(ctx, "a@x.com", "nope", "acme")
	if !errors.Is(unknown, ErrInvalidCredentials) || !errors.Is(wrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", unknown, wrong)
	}
	if unknown.Error() != wrong.Error() {
		t.Fatalf("messages differ: %q vs %q", unknown, wrong)
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	f := newSessionFixture(t)
	if _, err := f.manager.Login(context.Background(), "  A@X.COM ", "p1", "acme"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginInactiveUserRejected(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	if err := f.store.SetUserActive(ctx, f.user.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.Login(ctx, "a@x.com", "p1", "acme"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownApplicationYieldsEmptyPermissions(t *testing.T) {
	f := newSessionFixture(t)
	sess, err := f.manager.Login(context.Background(), "a@x.com", "p1", "does-not-exist")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := f.manager.Tokens().VerifyAccessToken(sess.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Application != "does-not-exist" || len(claims.Modules) != 0 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginDefaultsToAdminApplication(t *testing.T) {
	f := newSessionFixture(t)
	sess, err := f.manager.Login(context.Background(), "a@x.com", "p1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Application != DefaultAdminApplication {
		t.Fatalf("expected admin application, got %q", sess.Application)
	}
}

func TestRefreshReResolvesForAdminApplication(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess, err := f.manager.Login(ctx, "a@x.com", "p1", "acme")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.store.ReplaceDirectGrants(ctx, f.user.ID, f.admin.ID, []Grant{{ModuleSlug: "users", Actions: []Action{ActionRead}}}); err != nil {
		t.Fatal(err)
	}
	f.now = f.now.Add(time.Minute)

	refreshed, err := f.manager.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := f.manager.Tokens().VerifyAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Application != DefaultAdminApplication {
		t.Fatalf("unexpected application %q", claims.Application)
	}
	if !claims.Modules.Allows("users", ActionRead) {
		t.Fatalf("refresh did not pick up new grant: %v", claims.Modules)
	}
	if claims.Modules.Allows("tickets", ActionRead) {
		t.Fatalf("acme grants leaked into admin scope: %v", claims.Modules)
	}
}

func TestRefreshRejectsRevokedOrExpiredSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess, err := f.manager.Login(ctx, "a@x.com", "p1", "acme")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.manager.Revoke(ctx, sess.RefreshToken); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := f.manager.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after revoke, got %v", err)
	}

	sess, err = f.manager.Login(ctx, "a@x.com", "p1", "acme")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.now = f.now.Add(8 * 24 * time.Hour)
	if _, err := f.manager.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after expiry, got %v", err)
	}
	if _, err := f.manager.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for garbage, got %v", err)
	}
}

func TestVerifyRefreshTokenChecksSubject(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	token, exp, err := f.manager.Tokens().IssueRefreshToken(f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.CreateSession(ctx, SessionRecord{ID: "s1", UserID: "someone-else", Token: token, ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.VerifyRefreshToken(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for subject mismatch, got %v", err)
	}
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	var refresh []string
	var access string
	for i := 0; i < 3; i++ {
		sess, err := f.manager.Login(ctx, "a@x.com", "p1", "acme")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		refresh = append(refresh, sess.RefreshToken)
		access = sess.AccessToken
	}
	for _, tok := range refresh {
		if _, err := f.manager.VerifyRefreshToken(ctx, tok); err != nil {
			t.Fatalf("refresh token should be valid before logout: %v", err)
		}
	}

	f.manager.Logout(ctx, access)

	for _, tok := range refresh {
		if _, err := f.manager.VerifyRefreshToken(ctx, tok); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
		}
	}
}

func TestLogoutToleratesInvalidTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess, err := f.manager.Login(ctx, "a@x.com", "p1", "acme")
	if err != nil {
		t.Fatal(err)
	}
	f.manager.Logout(ctx, "")
	f.manager.Logout(ctx, "not-a-token")
	if _, err := f.manager.VerifyRefreshToken(ctx, sess.RefreshToken); err != nil {
		t.Fatalf("invalid logout must not revoke sessions: %v", err)
	}
}

func TestAuthenticateMapsToUnauthenticated(t *testing.T) {
	f := newSessionFixture(t)
	if _, err := f.manager.Authenticate("bogus"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPruneExpired(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	if _, err := f.manager.Login(ctx, "a@x.com", "p1", "acme"); err != nil {
		t.Fatal(err)
	}
	n, err := f.manager.PruneExpired(ctx)
	if err != nil || n != 0 {
		t.Fatalf("PruneExpired before expiry = %d, %v", n, err)
	}
	f.now = f.now.Add(8 * 24 * time.Hour)
	n, err = f.manager.PruneExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PruneExpired after expiry = %d, %v", n, err)
	}
}

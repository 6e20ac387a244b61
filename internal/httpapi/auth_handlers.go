package httpapi

import (
	"net/http"
	"strings"
	"time"

	"eeytech.com/console/internal/audit"
	"eeytech.com/console/internal/auth"
)

type loginRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ApplicationSlug string `json:"applicationSlug"`
	ApplicationAlt  string `json:"application_slug"`
}

func (r loginRequest) application() string {
	if s := strings.TrimSpace(r.ApplicationSlug); s != "" {
		return s
	}
	return strings.TrimSpace(r.ApplicationAlt)
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	Success      bool      `json:"success"`
	User         loginUser `json:"user"`
	Application  string    `json:"application"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type refreshResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type sessionResponse struct {
	UserID      string             `json:"userId"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	Application string             `json:"application"`
	Modules     auth.PermissionMap `json:"modules"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	SuperAdmin  bool               `json:"superAdmin"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	sess, err := a.sessions.Login(r.Context(), req.Email, req.Password, req.application())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.setSessionCookie(w, sess.AccessToken)
	ctx := auth.ContextWithClaims(r.Context(), claimsOf(sess))
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"application": sess.Application,
		"modules":     len(sess.Permissions),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User: loginUser{
			ID:    sess.User.ID,
			Email: sess.User.Email,
			Name:  sess.User.DisplayName(),
		},
		Application:  sess.Application,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.AccessExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	sess, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.setSessionCookie(w, sess.AccessToken)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.AccessExpiresAt,
	})
}

// handleLogout always clears the cookie and reports success.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		a.sessions.Logout(r.Context(), token)
	}
	if _, ok := auth.ClaimsFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	}
	a.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged out",
	})
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.revoke", nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		a.respondError(w, r, auth.ErrUnauthenticated)
		return
	}
	resp := sessionResponse{
		UserID:      claims.UserID(),
		Email:       claims.Email,
		Name:        claims.Name,
		Application: claims.Application,
		Modules:     claims.Modules,
		SuperAdmin:  a.gate.IsSuperAdmin(claims),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Domain:   a.cookieDomain,
		MaxAge:   int(a.sessions.Tokens().AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// claimsOf builds audit claims for a session that has not yet travelled
// through the cookie.
func claimsOf(sess auth.Session) *auth.Claims {
	c := &auth.Claims{Email: sess.User.Email, Application: sess.Application}
	c.Subject = sess.User.ID
	return c
}

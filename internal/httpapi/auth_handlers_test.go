package httpapi

import (
	"net/http"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eeytech.com/console/internal/auth"
)

func TestLoginScenarioMergesRoleAndDirectGrants(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/api/auth/login", map[string]string{
		"email":            "a@x.com",
		"password":         userPassword,
		"application_slug": "acme",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, userID, body.User.ID)
	assert.Equal(t, "a", body.User.Name)
	assert.NotEmpty(t, body.RefreshToken)

	cookie := findCookie(resp, cookieName)
	require.NotNil(t, cookie)

	sessResp := c.get("/api/auth/session", cookieHeader(cookie.Value))
	require.Equal(t, http.StatusOK, sessResp.StatusCode)
	var sess sessionResponse
	decodeBody(t, sessResp, &sess)
	assert.Equal(t, "acme", sess.Application)
	assert.True(t, slices.Equal(sess.Modules[auth.ModuleTickets], []auth.Action{auth.ActionRead, auth.ActionWrite}),
		"modules: %v", sess.Modules)
	assert.False(t, sess.SuperAdmin)
}

func TestLoginCookieAttributes(t *testing.T) {
	c := newTestAPI(t)
	resp := c.post("/api/auth/login", map[string]string{"email": "a@x.com", "password": userPassword}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := findCookie(resp, cookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "eeytech.com", cookie.Domain)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 900, cookie.MaxAge)
}

func TestLoginCORSEchoesOrigin(t *testing.T) {
	c := newTestAPI(t)
	origin := "https://tickets.eeytech.com"

	pre := c.do(http.MethodOptions, "/api/auth/login", nil, map[string]string{
		"Origin":                        origin,
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, pre.StatusCode)
	assert.Equal(t, origin, pre.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", pre.Header.Get("Access-Control-Allow-Credentials"))

	resp := c.post("/api/auth/login", map[string]string{"email": "a@x.com", "password": userPassword}, map[string]string{"Origin": origin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Values("Vary"), "Origin")
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := newTestAPI(t)
	for _, creds := range []map[string]string{
		{"email": "a@x.com", "password": "wrong"},
		{"email": "ghost@x.com", "password": userPassword},
	} {
		resp := c.post("/api/auth/login", creds, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Equal(t, "invalid credentials", body["error"])
		assert.Nil(t, findCookie(resp, cookieName))
	}

	resp := c.post("/api/auth/login", map[string]string{"email": "not-an-email", "password": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshReissuesAdminToken(t *testing.T) {
	c := newTestAPI(t)
	_, refresh := c.login("a@x.com", userPassword, "acme")

	resp := c.post("/api/auth/refresh", map[string]string{"refreshToken": refresh}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body refreshResponse
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	require.NotNil(t, findCookie(resp, cookieName))

	sess := c.get("/api/auth/session", bearerHeader(body.AccessToken))
	require.Equal(t, http.StatusOK, sess.StatusCode)
	var claims sessionResponse
	decodeBody(t, sess, &claims)
	assert.Equal(t, auth.DefaultAdminApplication, claims.Application)

	bad := c.post("/api/auth/refresh", map[string]string{"refreshToken": "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}

func TestLogoutRevokesEveryRefreshToken(t *testing.T) {
	c := newTestAPI(t)
	_, first := c.login("a@x.com", userPassword, "acme")
	access, second := c.login("a@x.com", userPassword, "acme")

	resp := c.post("/api/auth/logout", nil, cookieHeader(access))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := findCookie(resp, cookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	for _, refresh := range []string{first, second} {
		r := c.post("/api/auth/refresh", map[string]string{"refreshToken": refresh}, nil)
		assert.Equal(t, http.StatusUnauthorized, r.StatusCode)
	}
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	c := newTestAPI(t)
	resp := c.post("/api/auth/logout", nil, cookieHeader("not-a-token"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, findCookie(resp, cookieName))
}

func TestRevokeTargetsSingleToken(t *testing.T) {
	c := newTestAPI(t)
	_, first := c.login("a@x.com", userPassword, "acme")
	_, second := c.login("a@x.com", userPassword, "acme")

	resp := c.post("/api/auth/revoke", map[string]string{"refreshToken": first}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusUnauthorized, c.post("/api/auth/refresh", map[string]string{"refreshToken": first}, nil).StatusCode)
	assert.Equal(t, http.StatusOK, c.post("/api/auth/refresh", map[string]string{"refreshToken": second}, nil).StatusCode)
}

func TestSessionRequiresAuthentication(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/api/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	html := c.get("/api/auth/session", map[string]string{"Accept": "text/html,application/xhtml+xml"})
	assert.Equal(t, http.StatusSeeOther, html.StatusCode)
	assert.Equal(t, loginPath, html.Header.Get("Location"))
}

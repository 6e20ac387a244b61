package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"eeytech.com/console/internal/auth"
)

const (
	authHeader   = "Authorization"
	apiKeyHeader = "X-API-Key"
	bearer       = "Bearer "
	cookieName   = "auth_token"
)

// withSession attaches claims when the request carries a valid access token
// in the auth_token cookie or an Authorization header. Requests without one
// pass through; the Gate rejects them where a session is required.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.sessions.Authenticate(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAPIKey authenticates machine callers. An X-API-Key header that does
// not resolve ends the request with 401; requests without the header fall
// through to session authentication.
func (a *API) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, present := apiKey(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		app, err := a.apiKeys.Resolve(r.Context(), key)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "invalid api key")
				return
			}
			a.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithApplication(r.Context(), app)))
	})
}

func apiKey(r *http.Request) (string, bool) {
	values, ok := r.Header[http.CanonicalHeaderKey(apiKeyHeader)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

// sessionToken prefers the cookie over the Authorization header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return ""
	}
	return token
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

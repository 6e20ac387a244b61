package auth

import "context"

type claimsContextKey struct{}
type tokenContextKey struct{}
type applicationContextKey struct{}

// ContextWithClaims attaches verified access-token claims to the context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the caller's verified claims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(claimsContextKey{}).(*Claims)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// UserIDFromContext returns the subject of the attached claims.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// ContextWithToken stores the raw access token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the access token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithApplication marks the request as acting on behalf of an
// application authenticated by API key.
func ContextWithApplication(ctx context.Context, app Application) context.Context {
	return context.WithValue(ctx, applicationContextKey{}, &app)
}

// ApplicationFromContext returns the API-key authenticated application.
func ApplicationFromContext(ctx context.Context) (Application, bool) {
	if ctx == nil {
		return Application{}, false
	}
	v, ok := ctx.Value(applicationContextKey{}).(*Application)
	if !ok || v == nil {
		return Application{}, false
	}
	return *v, true
}

package auth

import (
	"context"
	"strings"

	"eeytech.com/console/internal/obs"
)

// Gate is the single authorization choke point for privileged operations.
//
// Decisions are made from the permission snapshot embedded in the caller's
// access token. The store is never consulted, so a grant change becomes
// visible only after the token is reissued by login or refresh: at most one
// access-token lifetime later.
type Gate struct {
	superAdminEmail string
}

// NewGate constructs a Gate. An empty superAdminEmail disables the bypass.
func NewGate(superAdminEmail string) *Gate {
	return &Gate{superAdminEmail: strings.ToLower(strings.TrimSpace(superAdminEmail))}
}

// RequireModulePermission authorizes the session attached to ctx for action
// on module. When expectedApp is non-empty the token must have been minted
// for that application slug.
func (g *Gate) RequireModulePermission(ctx context.Context, module string, action Action, expectedApp string) (*Claims, error) {
	claims, _ := ClaimsFromContext(ctx)
	if err := g.Authorize(claims, module, action, expectedApp); err != nil {
		return nil, err
	}
	return claims, nil
}

// Authorize is the pure form of RequireModulePermission.
func (g *Gate) Authorize(claims *Claims, module string, action Action, expectedApp string) error {
	err := g.decide(claims, module, action, expectedApp)
	obs.RecordAuthzDecision(module, string(action), outcomeLabel(err))
	return err
}

// IsSuperAdmin reports whether claims belong to the configured super admin.
func (g *Gate) IsSuperAdmin(claims *Claims) bool {
	if g.superAdminEmail == "" || claims == nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(claims.Email)) == g.superAdminEmail
}

func (g *Gate) decide(claims *Claims, module string, action Action, expectedApp string) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if g.IsSuperAdmin(claims) {
		return nil
	}
	if expectedApp != "" && claims.Application != expectedApp {
		return ErrWrongTenant
	}
	if !claims.Modules.Allows(module, action) {
		return ErrInsufficientPermission
	}
	return nil
}

func outcomeLabel(err error) string {
	switch err {
	case nil:
		return "granted"
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrWrongTenant:
		return "wrong_tenant"
	default:
		return "denied"
	}
}

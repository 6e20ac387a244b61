package auth

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Resolver computes effective permission maps from role and direct grants.
type Resolver struct {
	grants GrantStore
}

// NewResolver constructs a Resolver over the given grant sources.
func NewResolver(grants GrantStore) (*Resolver, error) {
	if grants == nil {
		return nil, errors.New("grant store is required")
	}
	return &Resolver{grants: grants}, nil
}

// Resolve returns the union of the user's role-derived and direct grants
// within one application. An empty map means no permissions.
func (r *Resolver) Resolve(ctx context.Context, userID, applicationID string) (PermissionMap, error) {
	var roleGrants, directGrants []Grant
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roleGrants, err = r.grants.RoleGrantsForUser(gctx, userID, applicationID)
		return err
	})
	g.Go(func() error {
		var err error
		directGrants, err = r.grants.DirectGrantsForUser(gctx, userID, applicationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeGrants(roleGrants, directGrants), nil
}

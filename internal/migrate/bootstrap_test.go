package migrate

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"eeytech.com/console/internal/auth"
)

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	in := BootstrapInput{AdminAppSlug: "eeytech-admin", Email: " Root@Eeytech.com ", Password: "change-me-now"}

	first, err := Bootstrap(ctx, store, hasher, in)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !first.CreatedApp || !first.CreatedUser {
		t.Fatalf("expected app and user to be created: %+v", first)
	}
	if first.User.Email != "root@eeytech.com" {
		t.Fatalf("email not normalised: %q", first.User.Email)
	}
	if !hasher.Verify("change-me-now", first.User.PasswordHash) {
		t.Fatal("password hash does not verify")
	}

	if err := store.ReplaceDirectGrants(ctx, first.User.ID, first.Application.ID, []auth.Grant{
		{ModuleSlug: "billing", Actions: []auth.Action{auth.ActionRead}},
	}); err != nil {
		t.Fatal(err)
	}

	second, err := Bootstrap(ctx, store, hasher, in)
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if second.CreatedApp || second.CreatedUser {
		t.Fatalf("second run must reuse records: %+v", second)
	}
	if second.Application.ID != first.Application.ID || second.User.ID != first.User.ID {
		t.Fatal("second run returned different records")
	}

	grants, err := store.DirectGrantsForUser(ctx, first.User.ID, first.Application.ID)
	if err != nil {
		t.Fatal(err)
	}
	perms := auth.MergeGrants(grants)
	for _, module := range consoleModules {
		if !perms.Allows(module, auth.ActionDelete) {
			t.Fatalf("expected FULL on %s, got %v", module, perms)
		}
	}
	if !perms.Allows("billing", auth.ActionRead) {
		t.Fatalf("existing grants must be kept: %v", perms)
	}
}

func TestBootstrapRejectsWeakInput(t *testing.T) {
	store := auth.NewMemoryStore()
	_, err := Bootstrap(context.Background(), store, auth.BcryptHasher{Cost: bcrypt.MinCost}, BootstrapInput{Email: "a@x.com", Password: "short"})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

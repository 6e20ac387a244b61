package auth

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestMergeGrantsIsCommutative(t *testing.T) {
	roleGrants := []Grant{
		{ModuleSlug: "tickets", Actions: []Action{ActionRead}},
		{ModuleSlug: "users", Actions: []Action{ActionRead, ActionWrite}},
		{ModuleSlug: "tickets", Actions: []Action{ActionRead, ActionDelete}},
	}
	directGrants := []Grant{
		{ModuleSlug: "tickets", Actions: []Action{ActionWrite}},
		{ModuleSlug: "billing", Actions: []Action{ActionFull}},
	}

	ab := MergeGrants(roleGrants, directGrants)
	ba := MergeGrants(directGrants, roleGrants)
	if !ab.Equal(ba) {
		t.Fatalf("merge not commutative: %v vs %v", ab, ba)
	}
	want := PermissionMap{
		"tickets": {ActionDelete, ActionRead, ActionWrite},
		"users":   {ActionRead, ActionWrite},
		"billing": {ActionFull},
	}
	if !ab.Equal(want) {
		t.Fatalf("unexpected merge: %v", ab)
	}
	for module, actions := range ab {
		if !slices.IsSorted(actions) {
			t.Fatalf("actions for %s not sorted: %v", module, actions)
		}
	}
}

func TestMergeGrantsOrderIndependent(t *testing.T) {
	grants := []Grant{
		{ModuleSlug: "a", Actions: []Action{ActionRead}},
		{ModuleSlug: "b", Actions: []Action{ActionWrite, ActionRead}},
		{ModuleSlug: "a", Actions: []Action{ActionDelete}},
		{ModuleSlug: "c", Actions: []Action{ActionFull}},
		{ModuleSlug: "b", Actions: []Action{ActionWrite}},
	}
	base := MergeGrants(grants)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := slices.Clone(grants)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		split := rnd.Intn(len(shuffled) + 1)
		got := MergeGrants(shuffled[split:], shuffled[:split])
		if !got.Equal(base) {
			t.Fatalf("iteration %d: %v != %v", i, got, base)
		}
	}
}

func TestMergeGrantsEmpty(t *testing.T) {
	m := MergeGrants(nil, nil)
	if m == nil || len(m) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", m)
	}
	if m.Allows("tickets", ActionRead) {
		t.Fatalf("empty map must not allow anything")
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" write ")
	if err != nil || a != ActionWrite {
		t.Fatalf("ParseAction = %q, %v", a, err)
	}
	if _, err := ParseAction("ADMIN"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNormalizeGrantsDropsEmptyAndFolds(t *testing.T) {
	in := []Grant{
		{ModuleSlug: "tickets", Actions: []Action{"read"}},
		{ModuleSlug: "tickets", Actions: []Action{"WRITE", "READ"}},
		{ModuleSlug: "users", Actions: nil},
	}
	out, err := normalizeGrants(in)
	if err != nil {
		t.Fatalf("normalizeGrants: %v", err)
	}
	if len(out) != 1 || out[0].ModuleSlug != "tickets" {
		t.Fatalf("unexpected grants: %+v", out)
	}
	if !slices.Equal(out[0].Actions, []Action{ActionRead, ActionWrite}) {
		t.Fatalf("unexpected actions: %v", out[0].Actions)
	}
	if in[0].Actions[0] != "read" {
		t.Fatalf("input must not be mutated")
	}

	if _, err := normalizeGrants([]Grant{{ModuleSlug: "tickets", Actions: []Action{"EXECUTE"}}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown action, got %v", err)
	}
	if _, err := normalizeGrants([]Grant{{ModuleSlug: " ", Actions: []Action{ActionRead}}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank module, got %v", err)
	}
}

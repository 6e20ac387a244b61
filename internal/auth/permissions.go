package auth

import (
	"fmt"
	"slices"
	"strings"
)

// Action is a capability granted on a module.
type Action string

const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionDelete Action = "DELETE"
	// ActionFull satisfies any requested action on its module.
	ActionFull Action = "FULL"
)

// Actions lists every known action in display order.
var Actions = []Action{ActionRead, ActionWrite, ActionDelete, ActionFull}

// ParseAction normalizes s and reports whether it names a known action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Actions, a) {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
	}
	return a, nil
}

// Grant assigns a set of actions on one module. It is the shape shared by
// role grants and direct user grants.
type Grant struct {
	ModuleSlug string   `json:"moduleSlug"`
	Actions    []Action `json:"actions"`
}

// PermissionMap is the effective module slug -> actions view embedded in
// access tokens.
type PermissionMap map[string][]Action

// Allows reports whether the map grants action on module. FULL grants all.
func (m PermissionMap) Allows(module string, action Action) bool {
	actions := m[module]
	return slices.Contains(actions, ActionFull) || slices.Contains(actions, action)
}

// Clone returns a deep copy.
func (m PermissionMap) Clone() PermissionMap {
	out := make(PermissionMap, len(m))
	for module, actions := range m {
		out[module] = slices.Clone(actions)
	}
	return out
}

// Equal compares two maps as sets of (module, action) pairs.
func (m PermissionMap) Equal(other PermissionMap) bool {
	a, b := MergeGrants(m.Grants()), MergeGrants(other.Grants())
	if len(a) != len(b) {
		return false
	}
	for module, actions := range a {
		if !slices.Equal(actions, b[module]) {
			return false
		}
	}
	return true
}

// Grants flattens the map back into grants ordered by module slug.
func (m PermissionMap) Grants() []Grant {
	modules := make([]string, 0, len(m))
	for module := range m {
		modules = append(modules, module)
	}
	slices.Sort(modules)
	out := make([]Grant, 0, len(modules))
	for _, module := range modules {
		out = append(out, Grant{ModuleSlug: module, Actions: slices.Clone(m[module])})
	}
	return out
}

// MergeGrants unions every grant from every source into one map. Action
// lists in the result are de-duplicated and sorted, so the result does not
// depend on the order of sources or grants.
func MergeGrants(sources ...[]Grant) PermissionMap {
	sets := make(map[string]map[Action]struct{})
	for _, grants := range sources {
		for _, g := range grants {
			module := strings.TrimSpace(g.ModuleSlug)
			if module == "" {
				continue
			}
			set, ok := sets[module]
			if !ok {
				set = make(map[Action]struct{}, len(g.Actions))
				sets[module] = set
			}
			for _, a := range g.Actions {
				set[a] = struct{}{}
			}
		}
	}
	out := make(PermissionMap, len(sets))
	for module, set := range sets {
		actions := make([]Action, 0, len(set))
		for a := range set {
			actions = append(actions, a)
		}
		slices.Sort(actions)
		out[module] = actions
	}
	return out
}

// normalizeGrants validates actions and folds duplicate module entries.
// Grants that end up with no actions are dropped.
func normalizeGrants(grants []Grant) ([]Grant, error) {
	grants = slices.Clone(grants)
	for i, g := range grants {
		if strings.TrimSpace(g.ModuleSlug) == "" {
			return nil, fmt.Errorf("%w: module slug is required", ErrInvalidInput)
		}
		parsed := make([]Action, 0, len(g.Actions))
		for _, raw := range g.Actions {
			a, err := ParseAction(string(raw))
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, a)
		}
		grants[i].Actions = parsed
	}
	var out []Grant
	for _, g := range MergeGrants(grants).Grants() {
		if len(g.Actions) == 0 {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

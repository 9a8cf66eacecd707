package ir

import (
	"fmt"
	"sync"
)

// ContextSpec is the raw input for building a ResolutionContext.
// Each list holds the variables visible in that scope; disabled variables
// are dropped during construction.
type ContextSpec struct {
	System    []Variable
	Global    []Variable
	Profile   []Variable
	Rule      []Variable
	ProfileID string
	RuleID    string
}

// ResolutionContext is an immutable snapshot of visible variables per scope.
//
// It is built once per request by the caller and read (never mutated) by
// every resolve call that receives it, so a single context can be shared
// across goroutines.
type ResolutionContext struct {
	scopes    map[Scope][]Variable
	index     map[Scope]map[string]int
	profileID string
	ruleID    string

	fpOnce      sync.Once
	fingerprint string
	fpErr       error
}

// ContextError reports a caller contract violation while building a context.
type ContextError struct {
	Scope   Scope
	Name    string
	Message string
}

func (e *ContextError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid resolution context: %s variable %q: %s", e.Scope, e.Name, e.Message)
	}
	return fmt.Sprintf("invalid resolution context: %s", e.Message)
}

// NewResolutionContext validates spec and returns an immutable context.
//
// Variables with an empty Scope inherit the scope of the list they are in;
// profile/rule variables with an empty OwnerID inherit ProfileID/RuleID.
// Duplicate names inside one scope, or a variable filed under the wrong
// scope or owner, return *ContextError.
func NewResolutionContext(spec ContextSpec) (*ResolutionContext, error) {
	c := &ResolutionContext{
		scopes:    make(map[Scope][]Variable, 4),
		index:     make(map[Scope]map[string]int, 4),
		profileID: spec.ProfileID,
		ruleID:    spec.RuleID,
	}

	lists := []struct {
		scope Scope
		vars  []Variable
		owner string
	}{
		{ScopeSystem, spec.System, ""},
		{ScopeGlobal, spec.Global, ""},
		{ScopeProfile, spec.Profile, spec.ProfileID},
		{ScopeRule, spec.Rule, spec.RuleID},
	}

	for _, l := range lists {
		vars := make([]Variable, 0, len(l.vars))
		idx := make(map[string]int, len(l.vars))
		for _, v := range l.vars {
			if v.Scope == "" {
				v.Scope = l.scope
			}
			if v.Scope != l.scope {
				return nil, &ContextError{Scope: l.scope, Name: v.Name, Message: fmt.Sprintf("filed under %s scope", v.Scope)}
			}
			if l.scope.Owned() {
				if v.OwnerID == "" {
					v.OwnerID = l.owner
				}
				if l.owner != "" && v.OwnerID != l.owner {
					return nil, &ContextError{Scope: l.scope, Name: v.Name, Message: fmt.Sprintf("owner %q does not match active %s %q", v.OwnerID, l.scope, l.owner)}
				}
			}
			if v.Name == "" {
				return nil, &ContextError{Scope: l.scope, Message: fmt.Sprintf("%s variable with empty name", l.scope)}
			}
			if !v.Enabled {
				continue
			}
			if _, dup := idx[v.Name]; dup {
				return nil, &ContextError{Scope: l.scope, Name: v.Name, Message: "duplicate name in scope"}
			}
			idx[v.Name] = len(vars)
			vars = append(vars, v)
		}
		c.scopes[l.scope] = vars
		c.index[l.scope] = idx
	}

	return c, nil
}

// MustResolutionContext is like NewResolutionContext but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResolutionContext(spec ContextSpec) *ResolutionContext {
	c, err := NewResolutionContext(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// ProfileID returns the active profile identifier (may be empty).
func (c *ResolutionContext) ProfileID() string { return c.profileID }

// RuleID returns the active rule identifier (may be empty).
func (c *ResolutionContext) RuleID() string { return c.ruleID }

// Variables returns a copy of the enabled variables in scope, in input order.
func (c *ResolutionContext) Variables(scope Scope) []Variable {
	vars := c.scopes[scope]
	out := make([]Variable, len(vars))
	copy(out, vars)
	return out
}

// Find returns the enabled variable called name in exactly one scope.
func (c *ResolutionContext) Find(scope Scope, name string) (Variable, bool) {
	i, ok := c.index[scope][name]
	if !ok {
		return Variable{}, false
	}
	return c.scopes[scope][i], true
}

// Len returns the total number of enabled variables across all scopes.
func (c *ResolutionContext) Len() int {
	n := 0
	for _, vars := range c.scopes {
		n += len(vars)
	}
	return n
}

// Fingerprint returns a stable digest of the name->value mappings of all four
// scopes. Contexts with identical mappings share a fingerprint regardless of
// slice order, owner ids, or metadata.
//
// Computed once and memoized; safe for concurrent use.
func (c *ResolutionContext) Fingerprint() string {
	c.fpOnce.Do(func() {
		c.fingerprint, c.fpErr = ContextFingerprint(c)
	})
	if c.fpErr != nil {
		// Only strings reach the canonical encoder, so this cannot happen
		// for a context built by NewResolutionContext.
		panic(c.fpErr)
	}
	return c.fingerprint
}

// Summary returns the trace-facing description of this context.
func (c *ResolutionContext) Summary() ContextSummary {
	counts := make(map[Scope]int, 4)
	for _, s := range PrecedenceOrder {
		counts[s] = len(c.scopes[s])
	}
	return ContextSummary{
		ProfileID:      c.profileID,
		RuleID:         c.ruleID,
		Fingerprint:    c.Fingerprint(),
		VariableCounts: counts,
	}
}

// mappings returns the name->value maps used for fingerprinting.
func (c *ResolutionContext) mappings() map[string]any {
	out := make(map[string]any, 4)
	for _, s := range PrecedenceOrder {
		m := make(map[string]any, len(c.scopes[s]))
		for _, v := range c.scopes[s] {
			m[v.Name] = v.Value
		}
		out[string(s)] = m
	}
	return out
}

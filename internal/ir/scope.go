package ir

import "fmt"

// Scope is the visibility tier of a variable.
type Scope string

const (
	ScopeSystem  Scope = "system"
	ScopeGlobal  Scope = "global"
	ScopeProfile Scope = "profile"
	ScopeRule    Scope = "rule"
)

// PrecedenceOrder lists scopes from highest to lowest precedence.
// Lookups walk this slice and stop at the first hit.
var PrecedenceOrder = []Scope{ScopeRule, ScopeProfile, ScopeGlobal, ScopeSystem}

// Precedence returns the rank of the scope; higher wins.
// Unknown scopes rank below system.
func (s Scope) Precedence() int {
	switch s {
	case ScopeRule:
		return 3
	case ScopeProfile:
		return 2
	case ScopeGlobal:
		return 1
	case ScopeSystem:
		return 0
	default:
		return -1
	}
}

// Owned reports whether variables in this scope carry an owner id.
func (s Scope) Owned() bool {
	return s == ScopeProfile || s == ScopeRule
}

// Valid reports whether s is one of the four known scopes.
func (s Scope) Valid() bool {
	return s.Precedence() >= 0
}

// ParseScope converts a string into a Scope.
// Returns error if the value is not system, global, profile, or rule.
func ParseScope(v string) (Scope, error) {
	s := Scope(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid scope %q: must be system, global, profile, or rule", v)
	}
	return s, nil
}

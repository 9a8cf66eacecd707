package ir

import (
	"fmt"
	"time"
)

// Variable is a named template value visible in one scope.
//
// Variables are created and updated by the storage collaborator and are
// read-only to the engine. Value may itself contain ${...} references.
type Variable struct {
	Name       string    `json:"name" yaml:"name"`
	Value      string    `json:"value" yaml:"value"`
	Scope      Scope     `json:"scope" yaml:"scope"`
	OwnerID    string    `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Enabled    bool      `json:"enabled" yaml:"enabled"`
	IsSecret   bool      `json:"is_secret,omitempty" yaml:"is_secret,omitempty"`
	Tags       []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	UsageCount int64     `json:"usage_count,omitempty" yaml:"usage_count,omitempty"`
}

// Key identifies a variable within the store: (scope, owner, name).
func (v Variable) Key() string {
	return string(v.Scope) + "/" + v.OwnerID + "/" + v.Name
}

// Validate checks the structural rules for a variable definition.
func (v Variable) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("variable name is required")
	}
	if !v.Scope.Valid() {
		return fmt.Errorf("variable %q: invalid scope %q", v.Name, v.Scope)
	}
	if v.Scope.Owned() && v.OwnerID == "" {
		return fmt.Errorf("variable %q: %s scope requires owner id", v.Name, v.Scope)
	}
	if !v.Scope.Owned() && v.OwnerID != "" {
		return fmt.Errorf("variable %q: %s scope must not carry owner id", v.Name, v.Scope)
	}
	return nil
}

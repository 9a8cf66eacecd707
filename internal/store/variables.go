package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/query"
	"github.com/roach88/varscope/internal/scope"
)

// VariableFilter narrows ListVariables. Zero fields match everything.
type VariableFilter struct {
	Scope       ir.Scope
	OwnerID     string
	Tag         string
	EnabledOnly bool
}

var variableColumns = []string{
	"scope", "owner_id", "name", "value", "enabled", "is_secret", "tags", "usage_count", "created_at", "updated_at",
}

// variableOrder lists system first so LoadContext builds each scope's
// slice in a stable order.
var variableOrder = []query.Order{
	{Field: "scope", Rank: []string{"system", "global", "profile", "rule"}},
	{Field: "owner_id"},
	{Field: "seq"},
}

// PutVariable inserts or updates a variable.
//
// The invalidator is called before the write and again after it commits,
// so a resolve running between the two cannot leave a stale entry behind.
// CreatedAt and UsageCount are preserved on update.
func (s *Store) PutVariable(ctx context.Context, v ir.Variable) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("put variable: %w", err)
	}
	tags, err := marshalTags(v.Tags)
	if err != nil {
		return fmt.Errorf("put variable: %w", err)
	}
	now := v.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}

	s.invalidate(v.Name, v.Scope, v.OwnerID)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variables
		(scope, owner_id, name, value, enabled, is_secret, tags, usage_count, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, (SELECT COALESCE(MAX(seq), 0) + 1 FROM variables), ?, ?)
		ON CONFLICT(scope, owner_id, name) DO UPDATE SET
			value = excluded.value,
			enabled = excluded.enabled,
			is_secret = excluded.is_secret,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`,
		string(v.Scope),
		v.OwnerID,
		v.Name,
		v.Value,
		boolInt(v.Enabled),
		boolInt(v.IsSecret),
		tags,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("put variable %s: %w", v.Key(), err)
	}
	s.invalidate(v.Name, v.Scope, v.OwnerID)
	return nil
}

// DeleteVariable removes a variable. Returns ErrNotFound if it did not exist.
func (s *Store) DeleteVariable(ctx context.Context, sc ir.Scope, ownerID, name string) error {
	s.invalidate(name, sc, ownerID)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM variables WHERE scope = ? AND owner_id = ? AND name = ?
	`, string(sc), ownerID, name)
	if err != nil {
		return fmt.Errorf("delete variable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete variable: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete variable %s/%s/%s: %w", sc, ownerID, name, ErrNotFound)
	}
	s.invalidate(name, sc, ownerID)
	return nil
}

// GetVariable returns one variable by key.
func (s *Store) GetVariable(ctx context.Context, sc ir.Scope, ownerID, name string) (ir.Variable, error) {
	vars, err := s.queryVariables(ctx, query.And{Predicates: []query.Predicate{
		query.Eq{Field: "scope", Value: string(sc)},
		query.Eq{Field: "owner_id", Value: ownerID},
		query.Eq{Field: "name", Value: name},
	}})
	if err != nil {
		return ir.Variable{}, err
	}
	if len(vars) == 0 {
		return ir.Variable{}, fmt.Errorf("variable %s/%s/%s: %w", sc, ownerID, name, ErrNotFound)
	}
	return vars[0], nil
}

// ListVariables returns the variables matching f, ordered by scope
// precedence (system first), owner and insertion order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListVariables(ctx context.Context, f VariableFilter) ([]ir.Variable, error) {
	var filter query.And
	if f.Scope != "" {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "scope", Value: string(f.Scope)})
	}
	if f.OwnerID != "" {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "owner_id", Value: f.OwnerID})
	}
	if f.Tag != "" {
		filter.Predicates = append(filter.Predicates, query.HasTag{Field: "tags", Tag: f.Tag})
	}
	if f.EnabledOnly {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "enabled", Value: true})
	}
	return s.queryVariables(ctx, filter)
}

// LoadContext builds the resolution context for a profile and rule: every
// enabled system and global variable plus the enabled variables owned by
// profileID and ruleID. Empty ids load no variables for that scope.
func (s *Store) LoadContext(ctx context.Context, profileID, ruleID string) (*ir.ResolutionContext, error) {
	visible := query.Or{Predicates: []query.Predicate{
		query.In{Field: "scope", Values: []any{string(ir.ScopeSystem), string(ir.ScopeGlobal)}},
	}}
	if profileID != "" {
		visible.Predicates = append(visible.Predicates, ownedBy(ir.ScopeProfile, profileID))
	}
	if ruleID != "" {
		visible.Predicates = append(visible.Predicates, ownedBy(ir.ScopeRule, ruleID))
	}
	vars, err := s.queryVariables(ctx, query.And{Predicates: []query.Predicate{
		query.Eq{Field: "enabled", Value: true},
		visible,
	}})
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	spec := ir.ContextSpec{ProfileID: profileID, RuleID: ruleID}
	for _, v := range vars {
		switch v.Scope {
		case ir.ScopeSystem:
			spec.System = append(spec.System, v)
		case ir.ScopeGlobal:
			spec.Global = append(spec.Global, v)
		case ir.ScopeProfile:
			spec.Profile = append(spec.Profile, v)
		case ir.ScopeRule:
			spec.Rule = append(spec.Rule, v)
		}
	}
	rctx, err := ir.NewResolutionContext(spec)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}
	return rctx, nil
}

// RecordUsage increments usage_count for the definition of each name that
// won lookup in rctx. Names not visible in rctx are skipped.
func (s *Store) RecordUsage(ctx context.Context, rctx *ir.ResolutionContext, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		res := scope.Lookup(name, rctx)
		if !res.Found {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE variables SET usage_count = usage_count + 1
			WHERE scope = ? AND owner_id = ? AND name = ?
		`, string(res.Scope), res.Variable.OwnerID, name); err != nil {
			return fmt.Errorf("record usage %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *Store) invalidate(name string, sc ir.Scope, ownerID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(name, sc, ownerID)
	}
}

func ownedBy(sc ir.Scope, ownerID string) query.Predicate {
	return query.And{Predicates: []query.Predicate{
		query.Eq{Field: "scope", Value: string(sc)},
		query.Eq{Field: "owner_id", Value: ownerID},
	}}
}

func (s *Store) queryVariables(ctx context.Context, filter query.Predicate) ([]ir.Variable, error) {
	stmt, args, err := query.Compile(query.Select{
		From:    "variables",
		Columns: variableColumns,
		Filter:  filter,
		OrderBy: variableOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	vars := []ir.Variable{}
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return vars, nil
}

func scanVariable(row *sql.Rows) (ir.Variable, error) {
	var (
		v                    ir.Variable
		scopeText, tags      string
		enabled, secret      int
		createdAt, updatedAt string
	)
	err := row.Scan(&scopeText, &v.OwnerID, &v.Name, &v.Value, &enabled, &secret, &tags, &v.UsageCount, &createdAt, &updatedAt)
	if err != nil {
		return ir.Variable{}, fmt.Errorf("scan variable: %w", err)
	}
	v.Scope = ir.Scope(scopeText)
	v.Enabled = enabled == 1
	v.IsSecret = secret == 1
	if v.Tags, err = unmarshalTags(tags); err != nil {
		return ir.Variable{}, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return ir.Variable{}, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ir.Variable{}, err
	}
	return v, nil
}

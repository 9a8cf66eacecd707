package query

import (
	"errors"
	"fmt"
	"regexp"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks q against the package rules and returns every problem
// found, joined.
//
// Validate is a pure function with no side effects.
func Validate(q Select) error {
	v := &validator{}
	v.identifier("from", q.From)
	if len(q.Columns) == 0 {
		v.addError("columns: at least one column is required")
	}
	for i, c := range q.Columns {
		v.identifier(fmt.Sprintf("columns[%d]", i), c)
	}
	if q.Filter != nil {
		v.predicate("filter", q.Filter)
	}
	if len(q.OrderBy) == 0 {
		v.addError("order_by: at least one key is required")
	}
	for i, o := range q.OrderBy {
		v.identifier(fmt.Sprintf("order_by[%d]", i), o.Field)
	}
	if q.Limit < 0 {
		v.addError("limit: must be non-negative, got %d", q.Limit)
	}
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) identifier(where, name string) {
	if !validIdentifier.MatchString(name) {
		v.addError("%s: invalid identifier %q", where, name)
	}
}

func (v *validator) value(where string, val any) {
	switch val.(type) {
	case string, bool, int, int64:
	default:
		v.addError("%s: unsupported value type %T", where, val)
	}
}

// predicate recursively validates a predicate node.
func (v *validator) predicate(where string, p Predicate) {
	switch pred := p.(type) {
	case Eq:
		v.identifier(where, pred.Field)
		v.value(where, pred.Value)
	case In:
		v.identifier(where, pred.Field)
		if len(pred.Values) == 0 {
			v.addError("%s: IN %s needs at least one value", where, pred.Field)
		}
		for i, val := range pred.Values {
			v.value(fmt.Sprintf("%s[%d]", where, i), val)
		}
	case Before:
		v.identifier(where, pred.Field)
		v.value(where, pred.Value)
	case HasTag:
		v.identifier(where, pred.Field)
	case And:
		for i, sub := range pred.Predicates {
			v.predicate(fmt.Sprintf("%s.and[%d]", where, i), sub)
		}
	case Or:
		for i, sub := range pred.Predicates {
			v.predicate(fmt.Sprintf("%s.or[%d]", where, i), sub)
		}
	case nil:
		v.addError("%s: nil predicate", where)
	default:
		v.addError("%s: unsupported predicate type %T", where, p)
	}
}

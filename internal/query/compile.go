package query

import (
	"errors"
	"fmt"
	"strings"
)

// Compile converts q to parameterized SQL for SQLite.
// Returns (sql, params, error).
//
// Values are never interpolated: every value, including rank labels and
// the limit, is a ? placeholder.
func Compile(q Select) (string, []any, error) {
	if err := Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	var (
		sql    strings.Builder
		params []any
	)
	fmt.Fprintf(&sql, "SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.From)

	if q.Filter != nil {
		where, whereParams := compilePredicate(q.Filter)
		sql.WriteString(" WHERE " + where)
		params = append(params, whereParams...)
	}

	keys := make([]string, len(q.OrderBy))
	for i, o := range q.OrderBy {
		key, orderParams := compileOrder(o)
		keys[i] = key
		params = append(params, orderParams...)
	}
	sql.WriteString(" ORDER BY " + strings.Join(keys, ", "))

	if q.Limit > 0 {
		sql.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return sql.String(), params, nil
}

// Where compiles p alone, for statements other than SELECT.
func Where(p Predicate) (string, []any, error) {
	v := &validator{}
	v.predicate("filter", p)
	if err := errors.Join(v.errs...); err != nil {
		return "", nil, fmt.Errorf("invalid predicate: %w", err)
	}
	where, params := compilePredicate(p)
	return where, params, nil
}

// compilePredicate compiles a validated predicate to a WHERE fragment.
func compilePredicate(p Predicate) (string, []any) {
	switch pred := p.(type) {
	case Eq:
		return pred.Field + " = ?", []any{pred.Value}
	case In:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), append([]any(nil), pred.Values...)
	case Before:
		return pred.Field + " < ?", []any{pred.Value}
	case HasTag:
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", pred.Field), []any{pred.Tag}
	case And:
		return compileJunction(pred.Predicates, " AND ", "1 = 1")
	case Or:
		return compileJunction(pred.Predicates, " OR ", "1 = 0")
	}
	// Unreachable after Validate.
	return "1 = 0", nil
}

// compileJunction joins sub-predicates with sep. An empty list compiles to
// empty, which matches all rows for AND and none for OR.
func compileJunction(preds []Predicate, sep, empty string) (string, []any) {
	switch len(preds) {
	case 0:
		return empty, nil
	case 1:
		return compilePredicate(preds[0])
	}
	parts := make([]string, len(preds))
	var params []any
	for i, sub := range preds {
		sql, subParams := compilePredicate(sub)
		parts[i] = sql
		params = append(params, subParams...)
	}
	return "(" + strings.Join(parts, sep) + ")", params
}

func compileOrder(o Order) (string, []any) {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	if len(o.Rank) == 0 {
		// COLLATE BINARY keeps text ordering identical across SQLite builds.
		return fmt.Sprintf("%s COLLATE BINARY %s", o.Field, dir), nil
	}

	var b strings.Builder
	params := make([]any, len(o.Rank))
	fmt.Fprintf(&b, "CASE %s", o.Field)
	for i, label := range o.Rank {
		fmt.Fprintf(&b, " WHEN ? THEN %d", i)
		params[i] = label
	}
	fmt.Fprintf(&b, " ELSE %d END %s", len(o.Rank), dir)
	return b.String(), params
}

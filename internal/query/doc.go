// Package query builds parameterized SQLite SELECT statements for the
// store.
//
// A Select names its table, explicit columns, an optional filter built from
// sealed Predicate types, and a mandatory ordering:
//
//	query.Select{
//	  From:    "variables",
//	  Columns: []string{"scope", "name", "value"},
//	  Filter: query.And{Predicates: []query.Predicate{
//	    query.Eq{Field: "enabled", Value: true},
//	    query.HasTag{Field: "tags", Tag: "prod"},
//	  }},
//	  OrderBy: []query.Order{{Field: "scope", Rank: []string{"system", "global"}}, {Field: "name"}},
//	}
//
// compiles to
//
//	SELECT scope, name, value FROM variables
//	WHERE (enabled = ? AND EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?))
//	ORDER BY CASE scope WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END ASC, name COLLATE BINARY ASC
//
// Rules enforced by Validate:
//   - Identifiers are plain SQL names; values are never interpolated
//   - Columns are explicit (no SELECT *)
//   - Every query has at least one ORDER BY key, so results are deterministic
package query

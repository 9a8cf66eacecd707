package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_MinimalSelect(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "traces",
		Columns: []string{"id"},
		OrderBy: []Order{{Field: "id"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM traces ORDER BY id COLLATE BINARY ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_FilterParameterized(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "variables",
		Columns: []string{"name", "value"},
		Filter: And{Predicates: []Predicate{
			Eq{Field: "scope", Value: "global"},
			Eq{Field: "enabled", Value: true},
		}},
		OrderBy: []Order{{Field: "name"}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT name, value FROM variables WHERE (scope = ? AND enabled = ?) ORDER BY name COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{"global", true}, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	evil := "x'; DROP TABLE variables; --"
	sql, params, err := Compile(Select{
		From:    "variables",
		Columns: []string{"name"},
		Filter:  Eq{Field: "name", Value: evil},
		OrderBy: []Order{{Field: "name"}},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{evil}, params)
}

func TestCompile_SinglePredicateJunctionUnwrapped(t *testing.T) {
	sql, _, err := Compile(Select{
		From:    "t",
		Columns: []string{"a"},
		Filter:  And{Predicates: []Predicate{Eq{Field: "a", Value: 1}}},
		OrderBy: []Order{{Field: "a"}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE a = ? ORDER BY")
}

func TestCompile_EmptyJunctions(t *testing.T) {
	tests := []struct {
		name   string
		filter Predicate
		want   string
	}{
		{"empty and matches all", And{}, "WHERE 1 = 1"},
		{"empty or matches none", Or{}, "WHERE 1 = 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(Select{
				From:    "t",
				Columns: []string{"a"},
				Filter:  tt.filter,
				OrderBy: []Order{{Field: "a"}},
			})
			require.NoError(t, err)
			assert.Contains(t, sql, tt.want)
			assert.Empty(t, params)
		})
	}
}

func TestCompile_NestedOrAnd(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "variables",
		Columns: []string{"name"},
		Filter: And{Predicates: []Predicate{
			Eq{Field: "enabled", Value: true},
			Or{Predicates: []Predicate{
				In{Field: "scope", Values: []any{"system", "global"}},
				And{Predicates: []Predicate{
					Eq{Field: "scope", Value: "profile"},
					Eq{Field: "owner_id", Value: "p1"},
				}},
			}},
		}},
		OrderBy: []Order{{Field: "name"}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT name FROM variables WHERE (enabled = ? AND (scope IN (?, ?) OR (scope = ? AND owner_id = ?))) ORDER BY name COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{true, "system", "global", "profile", "p1"}, params)
}

func TestCompile_BeforeAndHasTag(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "variables",
		Columns: []string{"name"},
		Filter: And{Predicates: []Predicate{
			Before{Field: "updated_at", Value: "2025-01-01T00:00:00Z"},
			HasTag{Field: "tags", Tag: "db"},
		}},
		OrderBy: []Order{{Field: "name"}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "updated_at < ?")
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?)")
	assert.Equal(t, []any{"2025-01-01T00:00:00Z", "db"}, params)
}

func TestCompile_RankOrderAndLimit(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "variables",
		Columns: []string{"name"},
		Filter:  Eq{Field: "enabled", Value: true},
		OrderBy: []Order{
			{Field: "scope", Rank: []string{"system", "global"}},
			{Field: "seq", Desc: true},
		},
		Limit: 10,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql,
		"ORDER BY CASE scope WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END ASC, seq COLLATE BINARY DESC LIMIT ?"), sql)
	// WHERE params, then rank labels, then the limit: positional order.
	assert.Equal(t, []any{true, "system", "global", 10}, params)
}

func TestCompile_Deterministic(t *testing.T) {
	q := Select{
		From:    "variables",
		Columns: []string{"name", "value"},
		Filter:  In{Field: "scope", Values: []any{"global", "rule"}},
		OrderBy: []Order{{Field: "name"}},
	}

	first, _, err := Compile(q)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		sql, _, err := Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
	}
}

func TestCompile_InvalidQuery(t *testing.T) {
	_, _, err := Compile(Select{From: "t", Columns: []string{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")
	assert.Contains(t, err.Error(), "order_by")
}

func TestWhere(t *testing.T) {
	sql, params, err := Where(Before{Field: "started_at", Value: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "started_at < ?", sql)
	assert.Equal(t, []any{"2025-01-01T00:00:00Z"}, params)

	_, _, err = Where(Eq{Field: "bad field", Value: 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid predicate")
}

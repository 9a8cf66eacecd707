package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSelect() Select {
	return Select{
		From:    "variables",
		Columns: []string{"name"},
		OrderBy: []Order{{Field: "name"}},
	}
}

func TestValidate_Valid(t *testing.T) {
	q := validSelect()
	q.Filter = And{Predicates: []Predicate{
		Eq{Field: "scope", Value: "global"},
		Eq{Field: "usage_count", Value: int64(3)},
		In{Field: "owner_id", Values: []any{"a", "b"}},
		Or{Predicates: []Predicate{Before{Field: "seq", Value: 10}, HasTag{Field: "tags", Tag: "x"}}},
	}}
	assert.NoError(t, Validate(q))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Select)
		wantErr string
	}{
		{"bad table", func(q *Select) { q.From = "variables; DROP" }, `from: invalid identifier "variables; DROP"`},
		{"empty table", func(q *Select) { q.From = "" }, `from: invalid identifier ""`},
		{"no columns", func(q *Select) { q.Columns = nil }, "at least one column is required"},
		{"star column", func(q *Select) { q.Columns = []string{"*"} }, `columns[0]: invalid identifier "*"`},
		{"no order", func(q *Select) { q.OrderBy = nil }, "order_by: at least one key is required"},
		{"bad order field", func(q *Select) { q.OrderBy = []Order{{Field: "1name"}} }, `order_by[0]: invalid identifier "1name"`},
		{"negative limit", func(q *Select) { q.Limit = -1 }, "limit: must be non-negative, got -1"},
		{"bad predicate field", func(q *Select) { q.Filter = Eq{Field: "a b", Value: "x"} }, `filter: invalid identifier "a b"`},
		{"float value", func(q *Select) { q.Filter = Eq{Field: "a", Value: 1.5} }, "unsupported value type float64"},
		{"nil value", func(q *Select) { q.Filter = Eq{Field: "a"} }, "unsupported value type <nil>"},
		{"empty in", func(q *Select) { q.Filter = In{Field: "a"} }, "IN a needs at least one value"},
		{"nested nil", func(q *Select) { q.Filter = And{Predicates: []Predicate{nil}} }, "filter.and[0]: nil predicate"},
		{"nested bad tag field", func(q *Select) {
			q.Filter = Or{Predicates: []Predicate{HasTag{Field: "-", Tag: "x"}}}
		}, `filter.or[0]: invalid identifier "-"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validSelect()
			tt.mutate(&q)
			err := Validate(q)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := Validate(Select{Limit: -1})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "from:")
	assert.Contains(t, msg, "columns:")
	assert.Contains(t, msg, "order_by:")
	assert.Contains(t, msg, "limit:")
}

package query

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it,
// which keeps Compile's type switch exhaustive.
type Predicate interface {
	predicateNode()
}

// Eq matches rows where Field = Value.
type Eq struct {
	Field string
	Value any
}

// In matches rows where Field is one of Values. Values must be non-empty.
type In struct {
	Field  string
	Values []any
}

// Before matches rows where Field < Value.
type Before struct {
	Field string
	Value any
}

// HasTag matches rows whose JSON array column Field contains Tag.
type HasTag struct {
	Field string
	Tag   string
}

// And matches rows satisfying every predicate. An empty And matches all.
type And struct {
	Predicates []Predicate
}

// Or matches rows satisfying any predicate. An empty Or matches none.
type Or struct {
	Predicates []Predicate
}

func (Eq) predicateNode()     {}
func (In) predicateNode()     {}
func (Before) predicateNode() {}
func (HasTag) predicateNode() {}
func (And) predicateNode()    {}
func (Or) predicateNode()     {}

// Order is one ORDER BY key.
//
// With Rank set, rows sort by the position of Field's value in Rank;
// values not listed sort last. Without it, Field sorts with BINARY
// collation.
type Order struct {
	Field string
	Desc  bool
	Rank  []string
}

// Select is a single-table query.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate // nil = no WHERE clause
	OrderBy []Order
	Limit   int // 0 = no limit
}

package template

import (
	"strconv"

	"github.com/roach88/varscope/internal/ir"
)

// Kind identifies a segment type.
type Kind int

const (
	Literal Kind = iota
	Variable
	Function
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Variable:
		return "variable"
	case Function:
		return "function"
	}
	return "unknown"
}

// ArgKind identifies a function argument type.
type ArgKind int

const (
	StringArg ArgKind = iota
	NumberArg
)

// Arg is one literal function argument. Value holds the unquoted string
// or the number's source text; Number is set for NumberArg.
type Arg struct {
	Kind   ArgKind
	Value  string
	Number float64
}

func (a Arg) String() string {
	if a.Kind == NumberArg {
		return a.Value
	}
	return strconv.Quote(a.Value)
}

// Segment is one piece of a parsed template.
// Text is set for literals (with escapes applied); Name and Args for
// references. Raw is the exact source text covered by Span.
type Segment struct {
	Kind Kind
	Text string
	Name string
	Args []Arg
	Span ir.Span
	Raw  string
}

// IsReference reports whether the segment is a variable or function reference.
func (s Segment) IsReference() bool {
	return s.Kind == Variable || s.Kind == Function
}

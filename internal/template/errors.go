package template

import (
	"errors"
	"fmt"

	"github.com/roach88/varscope/internal/ir"
)

// SyntaxError reports malformed template input.
type SyntaxError struct {
	Message  string
	Span     ir.Span
	Template string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at %d:%d: %s (near %q)", e.Span.Start, e.Span.End, e.Message, e.Excerpt())
}

// Excerpt returns the template text covered by the span.
func (e *SyntaxError) Excerpt() string {
	start, end := e.Span.Start, e.Span.End
	if start < 0 {
		start = 0
	}
	if end > len(e.Template) {
		end = len(e.Template)
	}
	if start > end {
		return ""
	}
	return e.Template[start:end]
}

// IsSyntaxError reports whether err wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/varscope/internal/funcs"
	"github.com/roach88/varscope/internal/graph"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/template"
)

// ErrNilContext is returned when Resolve is called without a context.
var ErrNilContext = errors.New("resolution context is nil")

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeTemplateSyntax indicates a malformed ${...} expression.
	ErrCodeTemplateSyntax ErrorCode = "TEMPLATE_SYNTAX"

	// ErrCodeUndefinedVariable indicates a name not visible in any scope.
	ErrCodeUndefinedVariable ErrorCode = "UNDEFINED_VARIABLE"

	// ErrCodeCircularDependency indicates a name that is part of a cycle.
	ErrCodeCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// ErrCodeFunctionInvocation indicates an unknown function or bad arguments.
	ErrCodeFunctionInvocation ErrorCode = "FUNCTION_INVOCATION"

	// ErrCodeDepthExceeded indicates a nested reference chain deeper than maxDepth.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"
)

// ResolutionError is a failure of one reference within a resolve call.
//
// Resolution errors never abort the call: the failing reference is replaced
// with an unresolved marker and the error is recorded in the trace.
type ResolutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Name is the variable (or function) the error is attributed to.
	Name string

	// Message is a human-readable description.
	Message string

	// Path is the reference chain that led here, outermost first.
	// For cycles it is the cycle itself.
	Path []string

	// Depth is the nesting depth at which the error occurred (0 if n/a).
	Depth int

	// Span locates the offending text for syntax errors.
	Span *ir.Span

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if len(e.Path) > 1 && e.Code != ErrCodeCircularDependency {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TraceError projects e into its serialisable trace form.
func (e *ResolutionError) TraceError() ir.TraceError {
	return ir.TraceError{
		Code:    string(e.Code),
		Name:    e.Name,
		Message: e.Message,
		Path:    e.Path,
		Span:    e.Span,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsSyntaxError returns true for template syntax errors, including a bare
// *template.SyntaxError.
func IsSyntaxError(err error) bool {
	return hasCode(err, ErrCodeTemplateSyntax) || template.IsSyntaxError(err)
}

// IsUndefinedError returns true if the error is an undefined variable error.
func IsUndefinedError(err error) bool {
	return hasCode(err, ErrCodeUndefinedVariable)
}

// IsCycleError returns true if the error is a circular dependency error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCircularDependency)
}

// IsFunctionError returns true for function invocation errors, including a
// bare *funcs.InvocationError.
func IsFunctionError(err error) bool {
	return hasCode(err, ErrCodeFunctionInvocation) || funcs.IsInvocationError(err)
}

// IsDepthError returns true if the error is a depth exceeded error.
func IsDepthError(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// NewSyntaxError wraps a template syntax error. name is empty for the
// top-level template and the variable name for a malformed value.
func NewSyntaxError(name string, err error) *ResolutionError {
	re := &ResolutionError{Code: ErrCodeTemplateSyntax, Name: name, Message: err.Error(), Err: err}
	var se *template.SyntaxError
	if errors.As(err, &se) {
		span := se.Span
		re.Span = &span
		if name != "" {
			re.Message = fmt.Sprintf("value of %s: %s", name, se.Message)
		} else {
			re.Message = se.Message
		}
	}
	return re
}

// NewUndefinedError creates an error for a name no scope defines.
func NewUndefinedError(name string, path []string, depth int) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeUndefinedVariable,
		Name:    name,
		Message: fmt.Sprintf("variable %s is not defined in any scope", name),
		Path:    path,
		Depth:   depth,
	}
}

// NewCycleError creates the error reported for one member of cycle.
func NewCycleError(name string, cycle graph.Cycle) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeCircularDependency,
		Name:    name,
		Message: cycle.Message,
		Path:    cycle.Closed(),
	}
}

// NewFunctionError wraps a failed function invocation.
func NewFunctionError(name string, depth int, err error) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeFunctionInvocation,
		Name:    name,
		Message: err.Error(),
		Depth:   depth,
		Err:     err,
	}
}

// NewDepthError creates an error for a chain that needs depth levels when
// only maxDepth are allowed.
func NewDepthError(name string, depth, maxDepth int, path []string) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeDepthExceeded,
		Name:    name,
		Message: fmt.Sprintf("nested reference depth %d exceeds limit %d", depth, maxDepth),
		Path:    path,
		Depth:   depth,
	}
}

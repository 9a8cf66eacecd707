package funcs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/varscope/internal/template"
)

// ArgType constrains a positional argument.
type ArgType int

const (
	AnyArg ArgType = iota
	StringArg
	NumberArg
)

func (t ArgType) String() string {
	switch t {
	case StringArg:
		return "string"
	case NumberArg:
		return "number"
	}
	return "any"
}

// Function is a named callable with an arity/type contract.
//
// ArgTypes[i] constrains argument i; positions past len(ArgTypes) accept any
// type. MaxArgs < 0 means variadic.
type Function struct {
	Name     string
	MinArgs  int
	MaxArgs  int
	ArgTypes []ArgType
	Call     func(args []template.Arg) (string, error)
}

// InvocationError reports an unknown function or a contract violation.
type InvocationError struct {
	Function string
	Reason   string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("function %s: %s", e.Function, e.Reason)
}

// IsInvocationError reports whether err wraps an *InvocationError.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// Registry is a name-keyed set of functions, safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Register adds or replaces fn.
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return errors.New("function name is required")
	}
	if fn.Call == nil {
		return fmt.Errorf("function %s: Call is nil", fn.Name)
	}
	if fn.MaxArgs >= 0 && fn.MaxArgs < fn.MinArgs {
		return fmt.Errorf("function %s: MaxArgs %d < MinArgs %d", fn.Name, fn.MaxArgs, fn.MinArgs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.Name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke checks args against the function's contract and calls it.
// Every failure is an *InvocationError.
func (r *Registry) Invoke(name string, args []template.Arg) (string, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return "", &InvocationError{Function: name, Reason: "unknown function"}
	}
	if err := fn.check(args); err != nil {
		return "", err
	}
	out, err := fn.Call(args)
	if err != nil {
		var ie *InvocationError
		if errors.As(err, &ie) {
			return "", err
		}
		return "", &InvocationError{Function: name, Reason: err.Error()}
	}
	return out, nil
}

func (fn Function) check(args []template.Arg) error {
	n := len(args)
	if n < fn.MinArgs || (fn.MaxArgs >= 0 && n > fn.MaxArgs) {
		return &InvocationError{Function: fn.Name, Reason: fmt.Sprintf("expected %s, got %d", fn.arity(), n)}
	}
	for i, arg := range args {
		if i >= len(fn.ArgTypes) {
			break
		}
		want := fn.ArgTypes[i]
		if want == AnyArg {
			continue
		}
		if (want == StringArg && arg.Kind != template.StringArg) || (want == NumberArg && arg.Kind != template.NumberArg) {
			return &InvocationError{Function: fn.Name, Reason: fmt.Sprintf("argument %d must be a %s, got %s", i+1, want, arg)}
		}
	}
	return nil
}

func (fn Function) arity() string {
	switch {
	case fn.MaxArgs < 0:
		return fmt.Sprintf("at least %d arguments", fn.MinArgs)
	case fn.MinArgs == fn.MaxArgs && fn.MinArgs == 1:
		return "1 argument"
	case fn.MinArgs == fn.MaxArgs:
		return fmt.Sprintf("%d arguments", fn.MinArgs)
	}
	return fmt.Sprintf("%d to %d arguments", fn.MinArgs, fn.MaxArgs)
}

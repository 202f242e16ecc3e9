package live

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/halodb/internal/ir"
)

// ArgKind says how an argument reaches a function.
type ArgKind int

const (
	// ArgValue is evaluated over the batch and passed as a column.
	ArgValue ArgKind = iota
	// ArgFixed must be a constant of any type, including None.
	ArgFixed
	// ArgFixedNumeric must be a numeric constant.
	ArgFixedNumeric
	// ArgFixedString must be a string constant.
	ArgFixedString
	// ArgPropertyRef must be a bare property name, passed unevaluated.
	ArgPropertyRef
	// ArgLinkRef must be a bare link relation name, passed unevaluated.
	ArgLinkRef
)

func (k ArgKind) String() string {
	switch k {
	case ArgValue:
		return "value"
	case ArgFixed:
		return "constant"
	case ArgFixedNumeric:
		return "numeric constant"
	case ArgFixedString:
		return "string constant"
	case ArgPropertyRef:
		return "property name"
	case ArgLinkRef:
		return "link name"
	default:
		return fmt.Sprintf("ArgKind(%d)", int(k))
	}
}

// ArgSpec declares one parameter.
type ArgSpec struct {
	Kind     ArgKind
	Optional bool
}

// Arg is one argument as delivered to an Impl.
type Arg struct {
	Kind ArgKind
	// Values is set for ArgValue, one row per batch halo.
	Values ir.Column
	// Const is set for the fixed kinds.
	Const ir.Value
	// Name is set for ArgPropertyRef and ArgLinkRef.
	Name string
}

// Impl computes a function over env's batch. The result must have one row
// per batch halo.
type Impl func(ctx context.Context, env *Env, args []Arg) (ir.Column, error)

// Descriptor describes a registered function.
type Descriptor struct {
	Name string
	Args []ArgSpec
	// Variadic repeats the last ArgSpec any number of times.
	Variadic bool
	// ReturnsHalos marks functions whose rows are halo references, usable
	// on the left of a chain.
	ReturnsHalos bool
	Impl         Impl
	Doc          string
}

// Arity returns the minimum and maximum argument count; max is -1 for
// variadic functions.
func (d Descriptor) Arity() (lo, hi int) {
	for _, a := range d.Args {
		if !a.Optional {
			lo++
		}
	}
	if d.Variadic {
		return lo, -1
	}
	return lo, len(d.Args)
}

// spec returns the ArgSpec governing argument i.
func (d Descriptor) spec(i int) ArgSpec {
	if i >= len(d.Args) {
		return d.Args[len(d.Args)-1]
	}
	return d.Args[i]
}

// Registry maps function names to descriptors. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Descriptor)}
}

// Register adds d. A taken name fails with a DUPLICATE_FUNCTION Error.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Impl == nil {
		return &Error{Code: CodeInvalidExpression, Function: d.Name, Message: "descriptor needs a name and an implementation"}
	}
	if d.Variadic && len(d.Args) == 0 {
		return &Error{Code: CodeInvalidExpression, Function: d.Name, Message: "variadic function declares no arguments"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[d.Name]; exists {
		return &Error{Code: CodeDuplicateFunction, Function: d.Name, Message: "name already registered"}
	}
	r.funcs[d.Name] = d
	return nil
}

// MustRegister is Register for static tables. Panics on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.funcs[name]
	return d, ok
}

// Names returns the registered names, sorted.
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

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{funcs: make(map[string]Descriptor, len(r.funcs))}
	for name, d := range r.funcs {
		c.funcs[name] = d
	}
	return c
}

var (
	builtinsOnce sync.Once
	builtins     *Registry
)

// Builtins returns a fresh registry holding the built-in functions.
// Callers may register more functions on it without affecting others.
func Builtins() *Registry {
	builtinsOnce.Do(func() {
		builtins = NewRegistry()
		for _, d := range builtinTable() {
			builtins.MustRegister(d)
		}
	})
	return builtins.Clone()
}

package live

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/ir"
)

func constImpl(v ir.Value) Impl {
	return func(_ context.Context, env *Env, _ []Arg) (ir.Column, error) {
		return ir.Repeat(v, len(env.Halos)), nil
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	d := Descriptor{Name: "answer", Impl: constImpl(ir.Int(42))}
	require.NoError(t, r.Register(d))

	err := r.Register(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFunction)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, CodeDuplicateFunction, le.Code)
	assert.Equal(t, "answer", le.Function)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Descriptor{Name: "", Impl: constImpl(ir.Null{})})
	assert.True(t, IsInvalidExpression(err))

	err = r.Register(Descriptor{Name: "noimpl"})
	assert.True(t, IsInvalidExpression(err))

	err = r.Register(Descriptor{Name: "varargs", Variadic: true, Impl: constImpl(ir.Null{})})
	assert.True(t, IsInvalidExpression(err))

	assert.Empty(t, r.Names())
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{Name: "once", Impl: constImpl(ir.Null{})})
	assert.Panics(t, func() {
		r.MustRegister(Descriptor{Name: "once", Impl: constImpl(ir.Null{})})
	})
}

func TestRegistry_LookupAndNames(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{Name: "zeta", Impl: constImpl(ir.Null{})})
	r.MustRegister(Descriptor{Name: "alpha", Impl: constImpl(ir.Null{})})

	d, ok := r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", d.Name)

	_, ok = r.Lookup("beta")
	assert.False(t, ok)

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestBuiltins(t *testing.T) {
	names := Builtins().Names()
	for _, want := range []string{
		"match", "later", "earlier", "latest", "earliest", "has_property", "has_link",
		"link", "t", "z", "halo_number", "raw", "reassemble",
		"add", "subtract", "multiply", "divide", "greater", "less",
	} {
		assert.Contains(t, names, want)
	}
}

func TestBuiltins_Independent(t *testing.T) {
	a := Builtins()
	a.MustRegister(Descriptor{Name: "extra", Impl: constImpl(ir.Null{})})

	_, ok := Builtins().Lookup("extra")
	assert.False(t, ok, "registrations on one copy do not leak into the next")

	clone := a.Clone()
	clone.MustRegister(Descriptor{Name: "extra2", Impl: constImpl(ir.Null{})})
	_, ok = a.Lookup("extra2")
	assert.False(t, ok)
}

func TestDescriptor_Arity(t *testing.T) {
	tests := []struct {
		d      Descriptor
		lo, hi int
	}{
		{Descriptor{}, 0, 0},
		{Descriptor{Args: []ArgSpec{{Kind: ArgValue}, {Kind: ArgFixed, Optional: true}}}, 1, 2},
		{Descriptor{Args: []ArgSpec{{Kind: ArgValue}}, Variadic: true}, 1, -1},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			lo, hi := tt.d.Arity()
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}

	link, ok := Builtins().Lookup("link")
	require.True(t, ok)
	lo, hi := link.Arity()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("evaluate: %w", newUnknownFunctionError("nope"))
	assert.True(t, IsUnknownFunction(wrapped))
	assert.False(t, IsArityMismatch(wrapped))
	assert.Contains(t, wrapped.Error(), "UNKNOWN_FUNCTION")
	assert.Contains(t, wrapped.Error(), "function=nope")

	arity := newArityError(Descriptor{Name: "f", Args: []ArgSpec{{Kind: ArgValue}, {Kind: ArgValue, Optional: true}}}, 5)
	assert.True(t, IsArityMismatch(arity))
	assert.Equal(t, "1 to 2", arity.Details["want"])

	argType := newArgumentTypeError("later", 0, "must be numeric")
	assert.True(t, IsArgumentType(argType))
	assert.Equal(t, "0", argType.Details["index"])

	assert.False(t, errors.Is(argType, ErrDuplicateFunction))
	assert.False(t, IsArgumentType(errors.New("plain")))
}

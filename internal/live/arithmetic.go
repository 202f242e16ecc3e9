package live

import (
	"context"

	"github.com/roach88/halodb/internal/fold"
	"github.com/roach88/halodb/internal/ir"
)

// binaryOp combines two non-null values; null means no result.
type binaryOp func(a, b ir.Value) ir.Value

// arithmetic lifts op over two columns. Rows where either side is null are
// masked and stay null.
func arithmetic(op binaryOp) Impl {
	return func(_ context.Context, env *Env, args []Arg) (ir.Column, error) {
		a, b := args[0].Values, args[1].Values
		mask := fold.NewMask(len(env.Halos))
		mask.MarkNull(a)
		mask.MarkNull(b)

		av, bv := mask.Apply(a), mask.Apply(b)
		out := make(ir.Column, len(av))
		for i := range av {
			out[i] = op(av[i], bv[i])
		}
		return mask.Unmask(out), nil
	}
}

// numeric applies f elementwise, broadcasting a scalar against an array.
// Mismatched array lengths and non-numeric operands give null. If both
// operands are integers and intF is non-nil the result is an integer.
func numeric(f func(x, y float64) float64, intF func(x, y int64) int64) binaryOp {
	return func(a, b ir.Value) ir.Value {
		if intF != nil {
			if x, ok := a.(ir.Int); ok {
				if y, ok := b.(ir.Int); ok {
					return ir.Int(intF(int64(x), int64(y)))
				}
			}
		}

		xa, aIsArray := a.(ir.Array)
		ya, bIsArray := b.(ir.Array)
		switch {
		case aIsArray && bIsArray:
			if len(xa) != len(ya) {
				return ir.Null{}
			}
			out := make(ir.Array, len(xa))
			for i := range xa {
				out[i] = f(xa[i], ya[i])
			}
			return out
		case aIsArray:
			y, ok := scalar(b)
			if !ok {
				return ir.Null{}
			}
			out := make(ir.Array, len(xa))
			for i := range xa {
				out[i] = f(xa[i], y)
			}
			return out
		case bIsArray:
			x, ok := scalar(a)
			if !ok {
				return ir.Null{}
			}
			out := make(ir.Array, len(ya))
			for i := range ya {
				out[i] = f(x, ya[i])
			}
			return out
		}

		x, okA := scalar(a)
		y, okB := scalar(b)
		if !okA || !okB {
			return ir.Null{}
		}
		return ir.Float(f(x, y))
	}
}

// scalar accepts numbers only; booleans and strings do not take part in
// arithmetic.
func scalar(v ir.Value) (float64, bool) {
	switch v.(type) {
	case ir.Float, ir.Int:
		return ir.AsFloat(v)
	default:
		return 0, false
	}
}

// compare orders two numeric scalars. NaN compares false.
func compare(less bool) binaryOp {
	return func(a, b ir.Value) ir.Value {
		x, okA := scalar(a)
		y, okB := scalar(b)
		if !okA || !okB {
			return ir.Null{}
		}
		if less {
			return ir.Bool(x < y)
		}
		return ir.Bool(x > y)
	}
}

var (
	addValues = numeric(
		func(x, y float64) float64 { return x + y },
		func(x, y int64) int64 { return x + y })
	subtractValues = numeric(
		func(x, y float64) float64 { return x - y },
		func(x, y int64) int64 { return x - y })
	multiplyValues = numeric(
		func(x, y float64) float64 { return x * y },
		func(x, y int64) int64 { return x * y })
	// Division is always floating point; x/0 follows IEEE 754.
	divideValues = numeric(func(x, y float64) float64 { return x / y }, nil)

	greaterValues = compare(false)
	lessValues    = compare(true)
)

package ir

// Column is one evaluated result per input halo, in input order.
// The invariant len(column) == len(halos) is enforced by the evaluator.
type Column []Value

// NullColumn returns n null rows.
func NullColumn(n int) Column {
	col := make(Column, n)
	for i := range col {
		col[i] = Null{}
	}
	return col
}

// Repeat returns n copies of v.
func Repeat(v Value, n int) Column {
	col := make(Column, n)
	for i := range col {
		col[i] = v
	}
	return col
}

// Gather returns the rows of c selected by idx, in idx order.
func (c Column) Gather(idx []int) Column {
	out := make(Column, len(idx))
	for i, j := range idx {
		out[i] = c[j]
	}
	return out
}

// Scatter writes src[i] into c[idx[i]]. len(src) must equal len(idx).
func (c Column) Scatter(idx []int, src Column) {
	for i, j := range idx {
		c[j] = src[i]
	}
}

// CountNull returns the number of null rows.
func (c Column) CountNull() int {
	n := 0
	for _, v := range c {
		if IsNull(v) {
			n++
		}
	}
	return n
}

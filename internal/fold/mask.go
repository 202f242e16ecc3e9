package fold

import "github.com/roach88/halodb/internal/ir"

// Mask tracks which rows of a batch still carry usable data.
// Functions apply their work to the valid rows only and scatter results
// back, leaving masked rows null.
type Mask struct {
	valid []bool
}

// NewMask returns a mask over n rows, all valid.
func NewMask(n int) *Mask {
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return &Mask{valid: valid}
}

// MarkMissing masks every row where col is null or NaN.
func (m *Mask) MarkMissing(col ir.Column) {
	for i, v := range col {
		if i < len(m.valid) && ir.IsMissing(v) {
			m.valid[i] = false
		}
	}
}

// MarkNull masks every row where col is null. NaN stays valid.
func (m *Mask) MarkNull(col ir.Column) {
	for i, v := range col {
		if i < len(m.valid) && ir.IsNull(v) {
			m.valid[i] = false
		}
	}
}

// Invalidate masks row i.
func (m *Mask) Invalidate(i int) {
	m.valid[i] = false
}

// Valid reports whether row i is unmasked.
func (m *Mask) Valid(i int) bool {
	return m.valid[i]
}

// Count returns the number of valid rows.
func (m *Mask) Count() int {
	n := 0
	for _, ok := range m.valid {
		if ok {
			n++
		}
	}
	return n
}

// Indices returns the valid row indices in order.
func (m *Mask) Indices() []int {
	idx := make([]int, 0, len(m.valid))
	for i, ok := range m.valid {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// Apply returns the valid rows of col.
func (m *Mask) Apply(col ir.Column) ir.Column {
	return col.Gather(m.Indices())
}

// Unmask expands a column of valid rows back to full length, null elsewhere.
func (m *Mask) Unmask(col ir.Column) ir.Column {
	out := ir.NullColumn(len(m.valid))
	out.Scatter(m.Indices(), col)
	return out
}

package fold

import (
	"fmt"

	"github.com/roach88/halodb/internal/ir"
)

// Mode selects the determiner extreme Refold keeps.
type Mode int

const (
	Max Mode = iota
	Min
)

func (m Mode) String() string {
	if m == Min {
		return "min"
	}
	return "max"
}

// ParseMode parses "max" or "min".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	default:
		return 0, fmt.Errorf("unknown fold mode %q: want max or min", s)
	}
}

// Range is the half-open span [Start, End) a row occupies in the unfolded slice.
type Range struct {
	Start, End int
}

// Len returns the number of candidates in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Folder holds fold state for one Unfold/Refold round trip.
// Not safe for concurrent use.
type Folder[T any] struct {
	mode       Mode
	determiner int
	ranges     []Range
	width      int
	unfolded   bool
}

// NewFolder creates a Folder that selects by column determiner of the
// columns passed to Refold.
func NewFolder[T any](mode Mode, determiner int) *Folder[T] {
	return &Folder[T]{mode: mode, determiner: determiner}
}

// Unfold flattens rows, preserving order, and records each row's range.
// A nil or empty row occupies an empty range.
func (f *Folder[T]) Unfold(rows [][]T) []T {
	f.ranges = make([]Range, len(rows))
	flat := make([]T, 0, len(rows))
	for i, row := range rows {
		start := len(flat)
		flat = append(flat, row...)
		f.ranges[i] = Range{Start: start, End: len(flat)}
	}
	f.width = len(flat)
	f.unfolded = true
	return flat
}

// Width returns the length of the most recent Unfold result.
func (f *Folder[T]) Width() int {
	return f.width
}

// Ranges returns a copy of the per-row ranges of the most recent Unfold.
func (f *Folder[T]) Ranges() []Range {
	out := make([]Range, len(f.ranges))
	copy(out, f.ranges)
	return out
}

// Refold reduces each column from Width() rows back to one row per original
// row. For each row the candidate with the maximal (Max) or minimal (Min)
// determiner wins; the first candidate wins ties. Candidates whose
// determiner is null, NaN or non-numeric are masked. A row with no valid
// candidate is null in every output column.
//
// Panics if called without a preceding Unfold, if the determiner index is
// out of range, or if any column length differs from Width(). State is
// cleared afterwards.
func (f *Folder[T]) Refold(columns []ir.Column) []ir.Column {
	if !f.unfolded {
		panic("fold: Refold called without Unfold")
	}
	if f.determiner < 0 || f.determiner >= len(columns) {
		panic(fmt.Sprintf("fold: determiner column %d out of range for %d columns", f.determiner, len(columns)))
	}
	for i, col := range columns {
		if len(col) != f.width {
			panic(fmt.Sprintf("fold: column %d has length %d, unfold width is %d", i, len(col), f.width))
		}
	}

	det := columns[f.determiner]
	out := make([]ir.Column, len(columns))
	for c := range out {
		out[c] = ir.NullColumn(len(f.ranges))
	}
	for row, r := range f.ranges {
		best := f.pick(det, r)
		if best < 0 {
			continue
		}
		for c, col := range columns {
			out[c][row] = col[best]
		}
	}

	f.ranges = nil
	f.width = 0
	f.unfolded = false
	return out
}

// pick returns the winning index within r, or -1 if every candidate is masked.
func (f *Folder[T]) pick(det ir.Column, r Range) int {
	best := -1
	var bestVal float64
	for i := r.Start; i < r.End; i++ {
		if ir.IsMissing(det[i]) {
			continue
		}
		v, ok := ir.AsFloat(det[i])
		if !ok {
			continue
		}
		if best < 0 || (f.mode == Max && v > bestVal) || (f.mode == Min && v < bestVal) {
			best, bestVal = i, v
		}
	}
	return best
}

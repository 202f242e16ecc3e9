package relation

import (
	"errors"
	"fmt"

	"github.com/roach88/halodb/internal/graph"
)

// HopBudget counts expansion steps for one traversal and enforces the
// hop ceiling.
//
// Each source halo gets its own budget. The ceiling guarantees termination
// even if the catalog unexpectedly contains cycles that visited-set
// tracking misses (for example when links are written concurrently).
type HopBudget struct {
	maxHops int
	current int
}

// NewHopBudget creates a budget allowing maxHops expansion steps.
func NewHopBudget(maxHops int) *HopBudget {
	return &HopBudget{maxHops: maxHops}
}

// Spend records one expansion step.
// Returns *CeilingError once more than maxHops steps have been spent.
func (b *HopBudget) Spend(source graph.HaloID) error {
	b.current++
	if b.current > b.maxHops {
		return &CeilingError{
			Source: source,
			Hops:   b.current,
			Limit:  b.maxHops,
		}
	}
	return nil
}

// Current returns the number of steps spent.
func (b *HopBudget) Current() int {
	return b.current
}

// MaxHops returns the ceiling.
func (b *HopBudget) MaxHops() int {
	return b.maxHops
}

// CeilingError reports a traversal that still had halos to expand when the
// hop ceiling was reached. The Strategy turns it into a null row unless
// candidates were already found.
type CeilingError struct {
	Source graph.HaloID
	Hops   int
	Limit  int
}

// Error implements the error interface.
func (e *CeilingError) Error() string {
	return fmt.Sprintf("traversal from halo %d exceeded hop ceiling: %d hops > %d limit",
		e.Source, e.Hops, e.Limit)
}

// IsCeilingError returns true if the error is a CeilingError.
// Uses errors.As to handle wrapped errors.
func IsCeilingError(err error) bool {
	var ce *CeilingError
	return errors.As(err, &ce)
}

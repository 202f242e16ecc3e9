// Package expr defines the expression trees evaluated over halo batches.
//
// Expr is a sealed interface using the marker method pattern. Only Leaf,
// Property, Call and Chain implement it, so the evaluator's type switch is
// exhaustive:
//
//	switch e := node.(type) {
//	case Leaf:     // constant, broadcast to every row
//	case Property: // stored or live-calculated property
//	case Call:     // registered function applied to its arguments
//	case Chain:    // evaluate Then on the halos produced by Halos
//	}
//
// The text syntax accepted by Parse:
//
//	Mvir                       property
//	later(5).Mvir              chain: Mvir of the halo five steps later
//	link(BH, BH_mass, "max")   call with a link ref, property ref and string
//	(Mvir + Mgas) / 2          binary operators map to add/subtract/multiply/divide
//	Mvir > 1e12                comparisons map to greater/less
//
// String formats an expression canonically; Parse(String(e)) yields e.
package expr

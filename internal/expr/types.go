package expr

import "github.com/roach88/halodb/internal/ir"

// Expr is a node of an expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Leaf is a constant. It evaluates to the same value in every row.
type Leaf struct {
	Value ir.Value
}

func (Leaf) exprNode() {}

// Property names a halo property. Evaluation reads the stored value, falls
// back to a live provider, and yields null otherwise.
type Property struct {
	Name string
}

func (Property) exprNode() {}

// Call applies a registered function to its arguments.
type Call struct {
	Name string
	Args []Expr
}

func (Call) exprNode() {}

// Chain evaluates Then on the halos Halos resolves to.
// Rows where Halos is null stay null.
type Chain struct {
	Halos Expr
	Then  Expr
}

func (Chain) exprNode() {}

// Binary operator names.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
	OpGreater  = "greater"
	OpLess     = "less"
)

var operatorSymbols = map[string]string{
	OpAdd:      "+",
	OpSubtract: "-",
	OpMultiply: "*",
	OpDivide:   "/",
	OpGreater:  ">",
	OpLess:     "<",
}

// Walk visits e and its descendants depth-first, parents first.
// If fn returns false the node's children are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case Chain:
		Walk(n.Halos, fn)
		Walk(n.Then, fn)
	case *Chain:
		Walk(n.Halos, fn)
		Walk(n.Then, fn)
	}
}

// Calls returns the names of every function called in e, in visit order.
func Calls(e Expr) []string {
	var names []string
	Walk(e, func(n Expr) bool {
		switch c := n.(type) {
		case Call:
			names = append(names, c.Name)
		case *Call:
			names = append(names, c.Name)
		}
		return true
	})
	return names
}

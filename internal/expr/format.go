package expr

import (
	"strconv"
	"strings"

	"github.com/roach88/halodb/internal/ir"
)

// String formats e canonically. Binary operators are fully parenthesised.
func String(e Expr) string {
	var b strings.Builder
	write(&b, e)
	return b.String()
}

func write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case Leaf:
		writeLeaf(b, n.Value)
	case *Leaf:
		writeLeaf(b, n.Value)
	case Property:
		b.WriteString(n.Name)
	case *Property:
		b.WriteString(n.Name)
	case Call:
		writeCall(b, n)
	case *Call:
		writeCall(b, *n)
	case Chain:
		writeChain(b, n)
	case *Chain:
		writeChain(b, *n)
	}
}

func writeLeaf(b *strings.Builder, v ir.Value) {
	switch val := v.(type) {
	case ir.String:
		b.WriteString(strconv.Quote(string(val)))
	case ir.Float:
		s := ir.Format(val)
		// Keep floats distinguishable from ints so they parse back as floats.
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		b.WriteString(s)
	default:
		b.WriteString(ir.Format(v))
	}
}

func writeCall(b *strings.Builder, c Call) {
	if sym, ok := operatorSymbols[c.Name]; ok && len(c.Args) == 2 {
		b.WriteByte('(')
		write(b, c.Args[0])
		b.WriteString(" " + sym + " ")
		write(b, c.Args[1])
		b.WriteByte(')')
		return
	}
	b.WriteString(c.Name)
	b.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, a)
	}
	b.WriteByte(')')
}

func writeChain(b *strings.Builder, c Chain) {
	write(b, c.Halos)
	b.WriteByte('.')
	write(b, c.Then)
}

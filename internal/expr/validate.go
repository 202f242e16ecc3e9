package expr

import (
	"fmt"
	"unicode"
)

// ValidationResult lists structural problems in an expression tree.
//
// Structural validation needs no registry: it catches malformed trees
// (nil nodes, empty names, chains ending in a constant). Unknown
// functions and arity errors are reported by the evaluator's Check.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks e for structural problems.
// Validate is a pure function with no side effects.
func Validate(e Expr) ValidationResult {
	v := &validator{problems: []string{}}
	v.validate(e, "root")
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(e Expr, at string) {
	switch n := e.(type) {
	case nil:
		v.addProblem("%s: nil expression", at)
	case Leaf:
		if n.Value == nil {
			v.addProblem("%s: leaf without value", at)
		}
	case *Leaf:
		v.validate(*n, at)
	case Property:
		if !isIdent(n.Name) {
			v.addProblem("%s: invalid property name %q", at, n.Name)
		}
	case *Property:
		v.validate(*n, at)
	case Call:
		if !isIdent(n.Name) {
			v.addProblem("%s: invalid function name %q", at, n.Name)
		}
		for i, a := range n.Args {
			v.validate(a, fmt.Sprintf("%s.%s[%d]", at, n.Name, i))
		}
	case *Call:
		v.validate(*n, at)
	case Chain:
		v.validate(n.Halos, at+".halos")
		switch n.Then.(type) {
		case Leaf, *Leaf:
			v.addProblem("%s: chain cannot end in a constant", at)
		default:
			v.validate(n.Then, at+".then")
		}
	case *Chain:
		v.validate(*n, at)
	default:
		v.addProblem("%s: unknown expression type %T", at, e)
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

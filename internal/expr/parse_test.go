package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/ir"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Expr
	}{
		{"property", "Mvir", Property{Name: "Mvir"}},
		{"int", "42", Leaf{Value: ir.Int(42)}},
		{"float", "1.5e12", Leaf{Value: ir.Float(1.5e12)}},
		{"negative", "-3", Leaf{Value: ir.Int(-3)}},
		{"string", `"sim/ts1"`, Leaf{Value: ir.String("sim/ts1")}},
		{"call no args", "latest()", Call{Name: "latest", Args: []Expr{}}},
		{"call", `match("sim/ts1")`, Call{Name: "match", Args: []Expr{Leaf{Value: ir.String("sim/ts1")}}}},
		{
			"chain",
			"later(5).Mvir",
			Chain{Halos: Call{Name: "later", Args: []Expr{Leaf{Value: ir.Int(5)}}}, Then: Property{Name: "Mvir"}},
		},
		{
			"chained calls",
			"earlier(1).earlier(2).Mvir",
			Chain{
				Halos: Chain{
					Halos: Call{Name: "earlier", Args: []Expr{Leaf{Value: ir.Int(1)}}},
					Then:  Call{Name: "earlier", Args: []Expr{Leaf{Value: ir.Int(2)}}},
				},
				Then: Property{Name: "Mvir"},
			},
		},
		{
			"precedence",
			"a + b * 2",
			Call{Name: OpAdd, Args: []Expr{
				Property{Name: "a"},
				Call{Name: OpMultiply, Args: []Expr{Property{Name: "b"}, Leaf{Value: ir.Int(2)}}},
			}},
		},
		{
			"parens and comparison",
			"(a - b) / 2 > 1",
			Call{Name: OpGreater, Args: []Expr{
				Call{Name: OpDivide, Args: []Expr{
					Call{Name: OpSubtract, Args: []Expr{Property{Name: "a"}, Property{Name: "b"}}},
					Leaf{Value: ir.Int(2)},
				}},
				Leaf{Value: ir.Int(1)},
			}},
		},
		{
			"negated property",
			"-Mvir",
			Call{Name: OpSubtract, Args: []Expr{Leaf{Value: ir.Int(0)}, Property{Name: "Mvir"}}},
		},
		{"none", "match(None)", Call{Name: "match", Args: []Expr{Leaf{Value: ir.Null{}}}}},
		{"bool", "True", Leaf{Value: ir.Bool(true)}},
		{
			"link with refs",
			`link(BH, BH_mass, "max")`,
			Call{Name: "link", Args: []Expr{
				Property{Name: "BH"},
				Property{Name: "BH_mass"},
				Leaf{Value: ir.String("max")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		src    string
		column int
	}{
		{"later(5", 8},
		{"a +", 4},
		{"a b", 3},
		{"later(5).", 10},
		{"later(5).3", 9},
		{"f(,)", 3},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
	_, err = Parse("   ")
	assert.Error(t, err)
}

func TestString_RoundTrip(t *testing.T) {
	sources := []string{
		"Mvir",
		"later(5).Mvir",
		`match("other/ts9").Mgas`,
		"((a + b) * 2.5)",
		"(Mvir > 1e+12)",
		`link(BH, BH_mass, "min")`,
		"earliest().t()",
		"-4",
		"2.0",
		"match(None)",
		"(False < True)",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			e := MustParse(src)
			formatted := String(e)
			again, err := Parse(formatted)
			require.NoError(t, err, "formatted: %s", formatted)
			assert.Equal(t, e, again)
		})
	}
}

func TestString_Canonical(t *testing.T) {
	assert.Equal(t, "((a + b) * 2)", String(MustParse("(a+b)*2")))
	assert.Equal(t, `later(1).match("x/y")`, String(MustParse(`later( 1 ) . match ( "x/y" )`)))
	assert.Equal(t, "2.0", String(Leaf{Value: ir.Float(2)}))
	assert.Equal(t, "<nil>", String(nil))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("(") })
}

func TestCalls(t *testing.T) {
	e := MustParse(`later(1).link(BH, mass, "max") + match("a/b").Mvir`)
	assert.Equal(t, []string{OpAdd, "later", "link", "match"}, Calls(e))
}

func TestWalk_SkipChildren(t *testing.T) {
	e := MustParse("f(g(h()))")
	var seen []string
	Walk(e, func(n Expr) bool {
		c := n.(Call)
		seen = append(seen, c.Name)
		return c.Name != "g"
	})
	assert.Equal(t, []string{"f", "g"}, seen)
}

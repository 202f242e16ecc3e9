package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/halodb/internal/ir"
)

func TestValidate_Valid(t *testing.T) {
	result := Validate(MustParse(`later(3).link(BH, BH_mass, "max")`))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"nil root", nil, "root: nil expression"},
		{"empty leaf", Leaf{}, "root: leaf without value"},
		{"bad property", Property{Name: "1abc"}, `invalid property name "1abc"`},
		{"empty call", Call{Name: ""}, `invalid function name ""`},
		{"nil arg", Call{Name: "f", Args: []Expr{nil}}, "root.f[0]: nil expression"},
		{"chain to constant", Chain{Halos: Property{Name: "x"}, Then: Leaf{Value: ir.Int(1)}}, "chain cannot end in a constant"},
		{"pointer nodes", &Chain{Halos: &Call{Name: "later", Args: []Expr{&Leaf{}}}, Then: &Property{Name: "ok"}}, "root.halos.later[0]: leaf without value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.e)
			assert.False(t, result.Valid)
			if assert.NotEmpty(t, result.Problems) {
				assert.Contains(t, result.Problems[0], tt.want)
			}
		})
	}
}

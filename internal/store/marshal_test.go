package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/ir"
)

func TestMarshalValue_RoundTrip(t *testing.T) {
	values := []ir.Value{
		ir.Float(2.5),
		ir.Float(math.NaN()),
		ir.Float(math.Inf(-1)),
		ir.Int(-7),
		ir.Bool(true),
		ir.Bool(false),
		ir.String(""),
		ir.Array{},
		ir.Array{1, math.NaN(), -3},
		ir.HaloRef(12),
	}

	for _, v := range values {
		t.Run(ir.Format(v), func(t *testing.T) {
			sv, err := marshalValue(v)
			require.NoError(t, err)
			got, err := unmarshalValue(sv)
			require.NoError(t, err)
			assert.True(t, ir.Equal(v, got), "got %s", ir.Format(got))
			assert.Equal(t, ir.Kind(v), ir.Kind(got))
		})
	}
}

func TestMarshalValue_NaNStoredAsNull(t *testing.T) {
	sv, err := marshalValue(ir.Float(math.NaN()))
	require.NoError(t, err)
	assert.False(t, sv.num.Valid)
}

func TestMarshalValue_Errors(t *testing.T) {
	_, err := marshalValue(ir.Null{})
	assert.Error(t, err)

	_, err = unmarshalValue(storedValue{kind: 99})
	assert.Error(t, err)

	_, err = unmarshalArray([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMarshalArray_LittleEndian(t *testing.T) {
	b := marshalArray(ir.Array{1})
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, b)
}

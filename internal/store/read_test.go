package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

func TestReadHaloAndTimestep(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := seedTwoSteps(t, s)

	h, err := s.Halo(ctx, c.desc.ID)
	require.NoError(t, err)
	assert.Equal(t, c.desc, h)

	ts, err := s.Timestep(ctx, c.early.ID)
	require.NoError(t, err)
	assert.Equal(t, c.early, ts)

	ts, err = s.LookupTimestep(ctx, "sim/late")
	require.NoError(t, err)
	assert.Equal(t, c.late, ts)

	_, err = s.Halo(ctx, 999)
	assert.ErrorIs(t, err, graph.ErrHaloNotFound)
	_, err = s.Timestep(ctx, 999)
	assert.ErrorIs(t, err, graph.ErrTimestepNotFound)
	_, err = s.LookupTimestep(ctx, "sim/missing")
	assert.ErrorIs(t, err, graph.ErrTimestepNotFound)
	_, err = s.LookupTimestep(ctx, "nopath")
	assert.Error(t, err)
}

func TestSequence_OrderedByTime(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Inserted out of order.
	for _, ts := range []struct {
		ext string
		t   float64
	}{{"c", 9}, {"a", 1}, {"b", 4}} {
		_, err := s.AddTimestep(ctx, "sim", ts.ext, ts.t, 0)
		require.NoError(t, err)
	}

	seq, err := s.Sequence(ctx, "sim")
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, "a", seq[0].Extension)
	assert.Equal(t, "b", seq[1].Extension)
	assert.Equal(t, "c", seq[2].Extension)

	_, err = s.Sequence(ctx, "nosuch")
	assert.ErrorIs(t, err, graph.ErrSimulationNotFound)
}

func TestLinks_Directions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := seedTwoSteps(t, s)

	require.NoError(t, s.AddLink(ctx, graph.Link{Source: c.prog.ID, Target: c.desc.ID, Relation: graph.Descendant, Weight: math.NaN()}))

	out, err := s.Links(ctx, c.desc.ID, graph.Progenitor, graph.Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, graph.Link{Source: c.desc.ID, Target: c.prog.ID, Relation: graph.Progenitor, Weight: 0.75}, out[0])

	in, err := s.Links(ctx, c.desc.ID, "", graph.Incoming)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, graph.Descendant, in[0].Relation)
	assert.True(t, math.IsNaN(in[0].Weight), "NaN weight round-trips")

	none, err := s.Links(ctx, c.desc.ID, "BH", graph.Outgoing)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProperties_AlignedWithRequest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := seedTwoSteps(t, s)

	require.NoError(t, s.SetProperty(ctx, c.desc.ID, "SFR", ir.Array{1, math.NaN(), 3}))
	require.NoError(t, s.SetProperty(ctx, c.prog.ID, "SFR", ir.String("n/a")))

	col, err := s.Properties(ctx, []graph.HaloID{c.desc.ID, 999, c.prog.ID, c.desc.ID}, "SFR")
	require.NoError(t, err)
	require.Len(t, col, 4)
	assert.True(t, ir.Equal(ir.Array{1, math.NaN(), 3}, col[0]))
	assert.True(t, ir.IsNull(col[1]))
	assert.Equal(t, ir.String("n/a"), col[2])
	assert.True(t, ir.Equal(col[0], col[3]), "repeated halos are filled at every position")

	col, err = s.Properties(ctx, []graph.HaloID{c.desc.ID}, "never_written")
	require.NoError(t, err)
	assert.Equal(t, ir.Column{ir.Null{}}, col)
}

func TestProperties_ManyHalos(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ts, err := s.AddTimestep(ctx, "sim", "big", 1, 0)
	require.NoError(t, err)

	const n = 1200
	ids := make([]graph.HaloID, n)
	values := make(ir.Column, n)
	err = s.WithTx(ctx, func(ctx context.Context) error {
		for i := range ids {
			h, err := s.AddHalo(ctx, ts.ID, int64(i))
			if err != nil {
				return err
			}
			ids[i] = h.ID
			values[i] = ir.Int(i)
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.SetProperties(ctx, "idx", ids, values))

	col, err := s.Properties(ctx, ids, "idx")
	require.NoError(t, err)
	assert.Equal(t, values, col)
}

func TestHalosAtAndLookupHalo(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := seedTwoSteps(t, s)

	h3, err := s.AddHalo(ctx, c.late.ID, 3)
	require.NoError(t, err)
	h2, err := s.AddHalo(ctx, c.late.ID, 2)
	require.NoError(t, err)

	halos, err := s.HalosAt(ctx, c.late.ID)
	require.NoError(t, err)
	assert.Equal(t, []graph.Halo{c.desc, h2, h3}, halos)

	h, err := s.LookupHalo(ctx, "sim/late", 3)
	require.NoError(t, err)
	assert.Equal(t, h3, h)

	_, err = s.LookupHalo(ctx, "sim/late", 42)
	assert.ErrorIs(t, err, graph.ErrHaloNotFound)
	_, err = s.HalosAt(ctx, 999)
	assert.ErrorIs(t, err, graph.ErrTimestepNotFound)
}

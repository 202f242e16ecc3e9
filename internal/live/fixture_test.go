package live

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
)

// tree is a three-step merger tree in "sim" plus a one-step twin run:
//
//	ts3 (t=3):  a3          b3
//	             | 0.9  \0.1 | 1
//	ts2 (t=2):  a2          b2
//	             | 1
//	ts1 (t=1):  a1
//
// a3 has sameas links to twin/ts3 halos x (weight 1) and y (weight 0.5).
type tree struct {
	mem           *graph.Memory
	ts1, ts2, ts3 graph.Timestep
	a1, a2, b2    graph.Halo
	a3, b3        graph.Halo
	x, y          graph.Halo
}

func newTree(t *testing.T) *tree {
	t.Helper()
	mem := graph.NewMemory()
	tr := &tree{mem: mem}

	var err error
	tr.ts1, err = mem.AddTimestep("sim", "ts1", 1, 4)
	require.NoError(t, err)
	tr.ts2, err = mem.AddTimestep("sim", "ts2", 2, 2)
	require.NoError(t, err)
	tr.ts3, err = mem.AddTimestep("sim", "ts3", 3, 1)
	require.NoError(t, err)
	twin, err := mem.AddTimestep("twin", "ts3", 3, 1)
	require.NoError(t, err)

	add := func(ts graph.Timestep, n int64) graph.Halo {
		h, err := mem.AddHalo(ts.ID, n)
		require.NoError(t, err)
		return h
	}
	tr.a1 = add(tr.ts1, 1)
	tr.a2 = add(tr.ts2, 1)
	tr.b2 = add(tr.ts2, 2)
	tr.a3 = add(tr.ts3, 1)
	tr.b3 = add(tr.ts3, 2)
	tr.x = add(twin, 1)
	tr.y = add(twin, 2)

	link := func(src, dst graph.Halo, kind graph.RelationKind, w float64) {
		require.NoError(t, mem.AddLink(graph.Link{Source: src.ID, Target: dst.ID, Relation: kind, Weight: w}))
	}
	link(tr.a3, tr.a2, graph.Progenitor, 0.9)
	link(tr.a3, tr.b2, graph.Progenitor, 0.1)
	link(tr.b3, tr.b2, graph.Progenitor, 1)
	link(tr.a2, tr.a1, graph.Progenitor, 1)
	link(tr.a3, tr.x, graph.SameAs, 1)
	link(tr.a3, tr.y, graph.SameAs, 0.5)

	set := func(h graph.Halo, name string, v ir.Value) {
		require.NoError(t, mem.SetProperty(h.ID, name, v))
	}
	set(tr.a2, "Mvir", ir.Float(10))
	set(tr.b2, "Mvir", ir.Float(20))
	set(tr.a1, "Mvir", ir.Float(5))
	set(tr.x, "Mvir", ir.Float(5))
	set(tr.y, "Mvir", ir.Float(50))
	set(tr.a2, "SFR_histogram", ir.Array{1, 1})
	set(tr.a3, "SFR_histogram", ir.Array{2})
	return tr
}

func ref(h graph.Halo) ir.Value { return ir.HaloRef(h.ID) }

// stubProperties computes double_mvir live and declares SFR_histogram
// time-chunked over one bin per Gyr.
type stubProperties struct{}

var unitBins = histogram.Params{NBins: 10, TMaxGyr: 10, MinimumStoreGyr: 1}

func (stubProperties) CanLiveCalculate(name string) bool { return name == "double_mvir" }

func (stubProperties) LiveCalculate(ctx context.Context, reader graph.Reader, name string, halos []graph.Halo) (ir.Column, error) {
	col, err := reader.Properties(ctx, graph.IDs(halos), "Mvir")
	if err != nil {
		return nil, err
	}
	out := ir.NullColumn(len(col))
	for i, v := range col {
		if f, ok := ir.AsFloat(v); ok {
			out[i] = ir.Float(2 * f)
		}
	}
	return out, nil
}

func (stubProperties) HistogramParams(name string) (histogram.Params, bool) {
	if name == "SFR_histogram" {
		return unitBins, true
	}
	return histogram.Params{}, false
}

var nan = ir.Float(math.NaN())

package histogram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// mergerTree: d (t=6) has progenitors p1 (weight 0.9) and p2 (weight 0.1)
// at t=5; p1 has progenitor p3 at t=3.
type mergerTree struct {
	mem           *graph.Memory
	d, p1, p2, p3 graph.Halo
}

func newMergerTree(t *testing.T) *mergerTree {
	t.Helper()
	mem := graph.NewMemory()
	ts1, err := mem.AddTimestep("sim", "ts1", 3, 2)
	require.NoError(t, err)
	ts2, err := mem.AddTimestep("sim", "ts2", 5, 1)
	require.NoError(t, err)
	ts3, err := mem.AddTimestep("sim", "ts3", 6, 0)
	require.NoError(t, err)

	m := &mergerTree{mem: mem}
	m.p3, _ = mem.AddHalo(ts1.ID, 1)
	m.p1, _ = mem.AddHalo(ts2.ID, 1)
	m.p2, _ = mem.AddHalo(ts2.ID, 2)
	m.d, _ = mem.AddHalo(ts3.ID, 1)

	require.NoError(t, mem.AddLink(graph.Link{Source: m.d.ID, Target: m.p1.ID, Relation: graph.Progenitor, Weight: 0.9}))
	require.NoError(t, mem.AddLink(graph.Link{Source: m.d.ID, Target: m.p2.ID, Relation: graph.Progenitor, Weight: 0.1}))
	require.NoError(t, mem.AddLink(graph.Link{Source: m.p1.ID, Target: m.p3.ID, Relation: graph.Progenitor, Weight: 1}))

	require.NoError(t, mem.SetProperty(m.p1.ID, "SFR", ir.Array{1, 1, 1}))
	require.NoError(t, mem.SetProperty(m.p2.ID, "SFR", ir.Array{2, 2, 2}))
	require.NoError(t, mem.SetProperty(m.p3.ID, "SFR", ir.Array{5, 5}))
	return m
}

func TestReassemble_Modes(t *testing.T) {
	m := newMergerTree(t)
	r := NewReassembler(m.mem)
	ctx := context.Background()

	tests := []struct {
		name string
		halo graph.Halo
		mode Mode
		want ir.Value
	}{
		{"raw missing", m.d, ModeRaw, ir.Null{}},
		{"raw stored", m.p1, ModeRaw, ir.Array{1, 1, 1}},
		{"place", m.p1, ModePlace, ir.Array{0, 0, 1, 1, 1}},
		{"place missing", m.d, ModePlace, ir.Null{}},
		{"major", m.d, ModeMajor, ir.Array{0, 5, 1, 1, 1, 0}},
		{"sum", m.d, ModeSum, ir.Array{0, 5, 3, 3, 3, 0}},
		{"major from leaf", m.p3, ModeMajor, ir.Array{0, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Reassemble(ctx, tt.halo, "SFR", unit, tt.mode)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.want, got), "got %s", ir.Format(got))
		})
	}
}

func TestReassemble_NoChunksOnChain(t *testing.T) {
	m := newMergerTree(t)
	got, err := NewReassembler(m.mem).Reassemble(context.Background(), m.d, "missing", unit, ModeSum)
	require.NoError(t, err)
	assert.True(t, ir.IsNull(got))
}

func TestReassemble_IllegalEdgeIsNull(t *testing.T) {
	m := newMergerTree(t)
	m.mem.AllowIllegalLinks = true
	require.NoError(t, m.mem.AddLink(graph.Link{Source: m.p1.ID, Target: m.p2.ID, Relation: graph.Progenitor, Weight: 1}))

	got, err := NewReassembler(m.mem).Reassemble(context.Background(), m.d, "SFR", unit, ModeMajor)
	require.NoError(t, err)
	assert.True(t, ir.IsNull(got))
}

func TestReassemble_Errors(t *testing.T) {
	m := newMergerTree(t)
	r := NewReassembler(m.mem)
	ctx := context.Background()

	_, err := r.Reassemble(ctx, m.d, "SFR", unit, Mode("stack"))
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = r.Reassemble(ctx, m.d, "SFR", Params{}, ModeRaw)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("sum")
	require.NoError(t, err)
	assert.Equal(t, ModeSum, m)

	_, err = ParseMode("major_across")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

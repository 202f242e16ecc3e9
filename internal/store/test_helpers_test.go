package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/graph"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// twoStepCatalog: halo 1 at sim/late (t=5) has progenitor halo 1 at
// sim/early (t=3).
type twoStepCatalog struct {
	early, late graph.Timestep
	prog, desc  graph.Halo
}

func seedTwoSteps(t *testing.T, s *Store) twoStepCatalog {
	t.Helper()
	ctx := context.Background()

	var c twoStepCatalog
	var err error
	c.early, err = s.AddTimestep(ctx, "sim", "early", 3, 2)
	require.NoError(t, err)
	c.late, err = s.AddTimestep(ctx, "sim", "late", 5, 1)
	require.NoError(t, err)
	c.prog, err = s.AddHalo(ctx, c.early.ID, 1)
	require.NoError(t, err)
	c.desc, err = s.AddHalo(ctx, c.late.ID, 1)
	require.NoError(t, err)
	require.NoError(t, s.AddLink(ctx, graph.Link{Source: c.desc.ID, Target: c.prog.ID, Relation: graph.Progenitor, Weight: 0.75}))
	return c
}

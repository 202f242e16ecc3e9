// Package testutil builds deterministic catalogs for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// Forest describes a generated catalog: Halos parallel progenitor lines
// through Steps timesteps of one simulation.
//
// Halo i at step k (1-based numbers, step 0 earliest) has Mvir
// 10*(k+1) + i and a one-entry SFR_histogram chunk of i. Its major
// progenitor is halo i at step k-1. With Mergers set, halo i also has
// halo i+1 of step k-1 as a minor progenitor of weight MinorWeight.
type Forest struct {
	Simulation  string
	Steps       int
	Halos       int
	DeltaGyr    float64
	Mergers     bool
	MinorWeight float64
}

// DefaultForest is a small forest with mergers.
var DefaultForest = Forest{
	Simulation:  "sim",
	Steps:       5,
	Halos:       3,
	DeltaGyr:    1,
	Mergers:     true,
	MinorWeight: 0.25,
}

// Generated is a catalog built from a Forest.
type Generated struct {
	*graph.Memory
	Timesteps []graph.Timestep

	halos [][]graph.Halo
}

// At returns halo number i (1-based) of step k.
func (g *Generated) At(k, i int) graph.Halo {
	return g.halos[k][i-1]
}

// Step returns every halo of step k, in number order.
func (g *Generated) Step(k int) []graph.Halo {
	return append([]graph.Halo(nil), g.halos[k]...)
}

// Mvir is the Mvir the generator stores for halo i of step k.
func Mvir(k, i int) float64 {
	return float64(10*(k+1) + i)
}

// Extension names step k.
func Extension(k int) string {
	return fmt.Sprintf("ts%03d", k+1)
}

// Build generates f into a fresh graph.Memory. Step k is at time
// (k+1)*DeltaGyr.
func Build(t testing.TB, f Forest) *Generated {
	t.Helper()
	g, err := build(f)
	if err != nil {
		t.Fatalf("testutil: build forest: %v", err)
	}
	return g
}

func build(f Forest) (*Generated, error) {
	if f.Steps < 1 || f.Halos < 1 || f.DeltaGyr <= 0 {
		return nil, fmt.Errorf("forest needs positive steps, halos and spacing, got %+v", f)
	}
	mem := graph.NewMemory()
	g := &Generated{Memory: mem}

	for k := 0; k < f.Steps; k++ {
		timeGyr := float64(k+1) * f.DeltaGyr
		ts, err := mem.AddTimestep(f.Simulation, Extension(k), timeGyr, float64(f.Steps-k-1))
		if err != nil {
			return nil, err
		}
		g.Timesteps = append(g.Timesteps, ts)

		row := make([]graph.Halo, f.Halos)
		for i := 1; i <= f.Halos; i++ {
			h, err := mem.AddHalo(ts.ID, int64(i))
			if err != nil {
				return nil, err
			}
			if err := mem.SetProperty(h.ID, "Mvir", ir.Float(Mvir(k, i))); err != nil {
				return nil, err
			}
			if err := mem.SetProperty(h.ID, "SFR_histogram", ir.Array{float64(i)}); err != nil {
				return nil, err
			}
			row[i-1] = h
		}
		g.halos = append(g.halos, row)

		if k == 0 {
			continue
		}
		prev := g.halos[k-1]
		for i, h := range row {
			major := graph.Link{Source: h.ID, Target: prev[i].ID, Relation: graph.Progenitor, Weight: 1}
			if f.Mergers && i+1 < len(prev) {
				major.Weight = 1 - f.MinorWeight
				minor := graph.Link{Source: h.ID, Target: prev[i+1].ID, Relation: graph.Progenitor, Weight: f.MinorWeight}
				if err := mem.AddLink(minor); err != nil {
					return nil, err
				}
			}
			if err := mem.AddLink(major); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

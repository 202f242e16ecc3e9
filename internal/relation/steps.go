package relation

import (
	"context"
	"fmt"

	"github.com/roach88/halodb/internal/graph"
)

// stepCache memoises timesteps and simulation sequences for one call.
type stepCache struct {
	reader graph.Reader
	byID   map[graph.TimestepID]graph.Timestep
	seqs   map[string]graph.Sequence
}

func newStepCache(reader graph.Reader) *stepCache {
	return &stepCache{
		reader: reader,
		byID:   make(map[graph.TimestepID]graph.Timestep),
		seqs:   make(map[string]graph.Sequence),
	}
}

func (c *stepCache) get(ctx context.Context, id graph.TimestepID) (graph.Timestep, error) {
	if ts, ok := c.byID[id]; ok {
		return ts, nil
	}
	ts, err := c.reader.Timestep(ctx, id)
	if err != nil {
		return graph.Timestep{}, err
	}
	c.byID[id] = ts
	return ts, nil
}

func (c *stepCache) sequence(ctx context.Context, simulation string) (graph.Sequence, error) {
	if seq, ok := c.seqs[simulation]; ok {
		return seq, nil
	}
	seq, err := c.reader.Sequence(ctx, simulation)
	if err != nil {
		return nil, err
	}
	c.seqs[simulation] = seq
	return seq, nil
}

// locate returns a timestep and its position within its simulation.
func (c *stepCache) locate(ctx context.Context, id graph.TimestepID) (graph.Timestep, int, error) {
	ts, err := c.get(ctx, id)
	if err != nil {
		return graph.Timestep{}, 0, err
	}
	seq, err := c.sequence(ctx, ts.Simulation)
	if err != nil {
		return graph.Timestep{}, 0, err
	}
	idx := seq.Index(id)
	if idx < 0 {
		return graph.Timestep{}, 0, fmt.Errorf("timestep %s missing from its sequence: %w", ts.Path(), graph.ErrTimestepNotFound)
	}
	return ts, idx, nil
}

// infer picks the relation that leads from src toward target.
func (c *stepCache) infer(ctx context.Context, src graph.Halo, target graph.Timestep) (graph.RelationKind, error) {
	srcTS, srcIdx, err := c.locate(ctx, src.Timestep)
	if err != nil {
		return "", err
	}
	if srcTS.Simulation != target.Simulation {
		return graph.SameAs, nil
	}
	_, targetIdx, err := c.locate(ctx, target.ID)
	if err != nil {
		return "", err
	}
	if targetIdx < srcIdx {
		return graph.Progenitor, nil
	}
	return graph.Descendant, nil
}

package live

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/relation"
)

// Env is the batch a function is applied to, with the collaborators it
// may use.
type Env struct {
	// Halos is the batch, in result order.
	Halos []graph.Halo

	ev    *Evaluator
	cache *lookupCache
}

// Reader returns the catalog being queried.
func (e *Env) Reader() graph.Reader { return e.ev.reader }

// Strategy returns the traversal strategy.
func (e *Env) Strategy() *relation.Strategy { return e.ev.strategy }

// Logger returns the evaluator's logger.
func (e *Env) Logger() *slog.Logger { return e.ev.logger }

// sub returns an Env over a different batch sharing the same caches.
func (e *Env) sub(halos []graph.Halo) *Env {
	return &Env{Halos: halos, ev: e.ev, cache: e.cache}
}

// Timestep returns the timestep of a batch halo.
func (e *Env) Timestep(ctx context.Context, h graph.Halo) (graph.Timestep, error) {
	return e.cache.timestep(ctx, e.ev.reader, h.Timestep)
}

// histogramParams returns the binning of a time-chunked property.
func (e *Env) histogramParams(name string) histogram.Params {
	if e.ev.props != nil {
		if p, ok := e.ev.props.HistogramParams(name); ok {
			return p
		}
	}
	return e.ev.params
}

// lookupCache memoizes catalog lookups for one Evaluate call.
type lookupCache struct {
	halos     map[graph.HaloID]graph.Halo
	timesteps map[graph.TimestepID]graph.Timestep
	sequences map[string]graph.Sequence
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		halos:     make(map[graph.HaloID]graph.Halo),
		timesteps: make(map[graph.TimestepID]graph.Timestep),
		sequences: make(map[string]graph.Sequence),
	}
}

// halo resolves a reference. A halo missing from the catalog reports
// ok=false rather than an error.
func (c *lookupCache) halo(ctx context.Context, r graph.Reader, id graph.HaloID) (graph.Halo, bool, error) {
	if h, ok := c.halos[id]; ok {
		return h, true, nil
	}
	h, err := r.Halo(ctx, id)
	if errors.Is(err, graph.ErrHaloNotFound) {
		return graph.Halo{}, false, nil
	}
	if err != nil {
		return graph.Halo{}, false, err
	}
	c.halos[id] = h
	return h, true, nil
}

func (c *lookupCache) timestep(ctx context.Context, r graph.Reader, id graph.TimestepID) (graph.Timestep, error) {
	if ts, ok := c.timesteps[id]; ok {
		return ts, nil
	}
	ts, err := r.Timestep(ctx, id)
	if err != nil {
		return graph.Timestep{}, err
	}
	c.timesteps[id] = ts
	return ts, nil
}

func (c *lookupCache) sequence(ctx context.Context, r graph.Reader, simulation string) (graph.Sequence, error) {
	if seq, ok := c.sequences[simulation]; ok {
		return seq, nil
	}
	seq, err := r.Sequence(ctx, simulation)
	if err != nil {
		return nil, err
	}
	c.sequences[simulation] = seq
	return seq, nil
}

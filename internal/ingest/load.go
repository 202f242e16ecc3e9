package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// Sink receives a catalog. store.Store satisfies it; wrap a graph.Memory
// with MemorySink.
type Sink interface {
	AddTimestep(ctx context.Context, simulation, extension string, timeGyr, redshift float64) (graph.Timestep, error)
	AddHalo(ctx context.Context, timestep graph.TimestepID, number int64) (graph.Halo, error)
	SetProperty(ctx context.Context, halo graph.HaloID, name string, v ir.Value) error
	AddLink(ctx context.Context, l graph.Link) error
}

// transactor is implemented by sinks that can group writes.
type transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Summary counts what a load wrote.
type Summary struct {
	Timesteps  int
	Halos      int
	Properties int
	Links      int
}

// Load writes c into sink, in one transaction when sink supports it.
// Properties tagged !halo are written after every halo exists.
func Load(ctx context.Context, sink Sink, c *Catalog, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &loader{sink: sink, halos: make(map[string]graph.Halo)}

	var err error
	if tx, ok := sink.(transactor); ok {
		err = tx.WithTx(ctx, func(ctx context.Context) error { return l.load(ctx, c) })
	} else {
		err = l.load(ctx, c)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded",
		"timesteps", l.sum.Timesteps, "halos", l.sum.Halos,
		"properties", l.sum.Properties, "links", l.sum.Links)
	return l.sum, nil
}

type pendingRef struct {
	halo graph.HaloID
	name string
	path string
}

type loader struct {
	sink  Sink
	halos map[string]graph.Halo
	refs  []pendingRef
	sum   Summary
}

func (l *loader) load(ctx context.Context, c *Catalog) error {
	for _, sim := range c.Simulations {
		for _, step := range sim.Timesteps {
			ts, err := l.sink.AddTimestep(ctx, sim.Name, step.Extension, step.TimeGyr, step.Redshift)
			if err != nil {
				return err
			}
			l.sum.Timesteps++
			for _, h := range step.Halos {
				if err := l.halo(ctx, ts, h); err != nil {
					return err
				}
			}
		}
	}

	for _, r := range l.refs {
		target, err := l.resolve(r.path)
		if err != nil {
			return fmt.Errorf("property %s: %w", r.name, err)
		}
		if err := l.sink.SetProperty(ctx, r.halo, r.name, ir.HaloRef(target.ID)); err != nil {
			return err
		}
		l.sum.Properties++
	}

	for i, link := range c.Links {
		from, err := l.resolve(link.From)
		if err != nil {
			return fmt.Errorf("links[%d]: %w", i, err)
		}
		to, err := l.resolve(link.To)
		if err != nil {
			return fmt.Errorf("links[%d]: %w", i, err)
		}
		weight := 1.0
		if link.Weight != nil {
			weight = *link.Weight
		}
		if err := l.sink.AddLink(ctx, graph.Link{
			Source:   from.ID,
			Target:   to.ID,
			Relation: graph.RelationKind(link.Relation),
			Weight:   weight,
		}); err != nil {
			return fmt.Errorf("links[%d]: %w", i, err)
		}
		l.sum.Links++
	}
	return nil
}

func (l *loader) halo(ctx context.Context, ts graph.Timestep, h Halo) error {
	halo, err := l.sink.AddHalo(ctx, ts.ID, h.Number)
	if err != nil {
		return err
	}
	l.halos[fmt.Sprintf("%s/%d", ts.Path(), h.Number)] = halo
	l.sum.Halos++

	// Sorted so that loads are reproducible.
	names := make([]string, 0, len(h.Properties))
	for name := range h.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := h.Properties[name]
		if v.HaloRef != "" {
			l.refs = append(l.refs, pendingRef{halo: halo.ID, name: name, path: v.HaloRef})
			continue
		}
		if v.Value == nil || ir.IsNull(v.Value) {
			continue
		}
		if err := l.sink.SetProperty(ctx, halo.ID, name, v.Value); err != nil {
			return err
		}
		l.sum.Properties++
	}
	return nil
}

func (l *loader) resolve(path string) (graph.Halo, error) {
	h, ok := l.halos[path]
	if !ok {
		return graph.Halo{}, fmt.Errorf("halo %s: %w", path, graph.ErrHaloNotFound)
	}
	return h, nil
}

// MemorySink adapts a graph.Memory to Sink.
type MemorySink struct {
	*graph.Memory
}

// AddTimestep implements Sink.
func (m MemorySink) AddTimestep(_ context.Context, simulation, extension string, timeGyr, redshift float64) (graph.Timestep, error) {
	return m.Memory.AddTimestep(simulation, extension, timeGyr, redshift)
}

// AddHalo implements Sink.
func (m MemorySink) AddHalo(_ context.Context, timestep graph.TimestepID, number int64) (graph.Halo, error) {
	return m.Memory.AddHalo(timestep, number)
}

// SetProperty implements Sink.
func (m MemorySink) SetProperty(_ context.Context, halo graph.HaloID, name string, v ir.Value) error {
	return m.Memory.SetProperty(halo, name, v)
}

// AddLink implements Sink.
func (m MemorySink) AddLink(_ context.Context, l graph.Link) error {
	return m.Memory.AddLink(l)
}

// SetProperties writes a column of values one halo at a time.
func (m MemorySink) SetProperties(_ context.Context, name string, halos []graph.HaloID, values ir.Column) error {
	if len(halos) != len(values) {
		return fmt.Errorf("%d halos but %d values", len(halos), len(values))
	}
	for i, h := range halos {
		if err := m.Memory.SetProperty(h, name, values[i]); err != nil {
			return err
		}
	}
	return nil
}

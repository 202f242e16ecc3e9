package relation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/halodb/internal/graph"
)

// Walk follows a progenitor or descendant chain from source to its end.
//
// The result includes the source at depth 0 and is sorted latest to
// earliest. Major follows the best link at each step; All collects every
// reachable generation. A nil Row means the walk hit a same-timestep edge or
// the hop ceiling.
func (s *Strategy) Walk(ctx context.Context, source graph.Halo, kind graph.RelationKind, policy Policy) (Row, error) {
	if !kind.Traversable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, kind)
	}
	if kind != graph.Progenitor && kind != graph.Descendant {
		return nil, fmt.Errorf("cannot walk %s links: want progenitor or descendant", kind)
	}

	ctx, span := tracer.Start(ctx, "relation.Walk", trace.WithAttributes(
		attribute.Int64("source", int64(source.ID)),
		attribute.String("relation", string(kind)),
		attribute.String("policy", policy.String()),
	))
	defer span.End()

	steps := newStepCache(s.reader)
	srcTS, srcIdx, err := steps.locate(ctx, source.Timestep)
	if err != nil {
		return nil, fmt.Errorf("walk from halo %d: %w", source.ID, err)
	}

	row, reason, err := s.walk(ctx, steps, node{halo: source, ts: srcTS, idx: srcIdx, weight: 1}, kind, policy)
	if err != nil {
		return nil, fmt.Errorf("walk from halo %d: %w", source.ID, err)
	}
	if row == nil {
		s.recordNull(source.ID, kind, reason)
	}
	return row, nil
}

func (s *Strategy) walk(ctx context.Context, steps *stepCache, start node, kind graph.RelationKind, policy Policy) (Row, NullReason, error) {
	chain := Row{{Halo: start.halo, Weight: 1, TimeGyr: start.ts.TimeGyr}}
	seen := newVisited(start.halo.ID)
	budget := NewHopBudget(s.maxHops)
	defer func() {
		traversalHops.WithLabelValues(string(kind)).Observe(float64(budget.Current()))
	}()

	frontier := []node{start}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		next := make(map[graph.HaloID]node)
		for _, n := range frontier {
			options, illegal, err := s.generation(ctx, steps, n, kind, seen)
			if err != nil {
				return nil, "", err
			}
			if illegal {
				return nil, ReasonIllegalEdge, nil
			}
			if policy == Major && len(options) > 1 {
				options = options[:1]
			}
			for _, o := range options {
				if prev, ok := next[o.halo.ID]; !ok || o.weight > prev.weight {
					next[o.halo.ID] = o
				}
			}
		}
		if len(next) == 0 {
			break
		}
		if err := budget.Spend(start.halo.ID); err != nil {
			s.logger.Debug("hop ceiling reached", "source", start.halo.ID, "err", err)
			return nil, ReasonCeiling, nil
		}

		frontier = frontier[:0]
		for id, n := range next {
			seen.add(id)
			frontier = append(frontier, n)
			chain = append(chain, Candidate{Halo: n.halo, Depth: n.depth, Weight: n.weight, TimeGyr: n.ts.TimeGyr})
		}
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].halo.ID < frontier[j].halo.ID })
	}

	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].TimeGyr != chain[j].TimeGyr {
			return chain[i].TimeGyr > chain[j].TimeGyr
		}
		a, b := chain[i], chain[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Halo.Number < b.Halo.Number
	})
	return chain, "", nil
}

// generation returns the unvisited neighbours of n one step along kind,
// best link first. illegal is true if any neighbour shares n's timestep.
func (s *Strategy) generation(ctx context.Context, steps *stepCache, n node, kind graph.RelationKind, seen *visited) ([]node, bool, error) {
	edges, err := s.edges(ctx, n.halo.ID, kind)
	if err != nil {
		return nil, false, err
	}

	var out []node
	for _, e := range edges {
		h, err := s.reader.Halo(ctx, e.to)
		if errors.Is(err, graph.ErrHaloNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if h.Timestep == n.halo.Timestep {
			s.logger.Debug("same-timestep edge abandons walk", "from", n.halo.ID, "to", h.ID)
			return nil, true, nil
		}
		if seen.has(h.ID) {
			continue
		}
		ts, idx, err := steps.locate(ctx, h.Timestep)
		if err != nil {
			return nil, false, err
		}
		if ts.Simulation != n.ts.Simulation {
			continue
		}
		if (kind == graph.Progenitor && idx >= n.idx) || (kind == graph.Descendant && idx <= n.idx) {
			continue
		}
		out = append(out, node{halo: h, ts: ts, idx: idx, depth: n.depth + 1, weight: n.weight * e.weight})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].halo.Number < out[j].halo.Number
	})
	return out, false, nil
}

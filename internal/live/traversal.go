package live

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/relation"
)

// targetFunc picks the target timestep for sources in ts; ok=false leaves
// those rows null.
type targetFunc func(ctx context.Context, ts graph.Timestep, seq graph.Sequence) (target graph.Timestep, ok bool, err error)

// matchGrouped resolves the major counterpart of every batch halo. Sources
// are grouped by timestep so each group has one target.
func matchGrouped(ctx context.Context, env *Env, target targetFunc) (ir.Column, error) {
	out := ir.NullColumn(len(env.Halos))

	var order []graph.TimestepID
	groups := make(map[graph.TimestepID][]int)
	for i, h := range env.Halos {
		if _, ok := groups[h.Timestep]; !ok {
			order = append(order, h.Timestep)
		}
		groups[h.Timestep] = append(groups[h.Timestep], i)
	}

	for _, tsID := range order {
		idx := groups[tsID]
		ts, err := env.cache.timestep(ctx, env.Reader(), tsID)
		if err != nil {
			return nil, err
		}
		seq, err := env.cache.sequence(ctx, env.Reader(), ts.Simulation)
		if err != nil {
			return nil, err
		}
		dst, ok, err := target(ctx, ts, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		sources := make([]graph.Halo, len(idx))
		for k, i := range idx {
			sources[k] = env.Halos[i]
		}
		rows, err := env.Strategy().Match(ctx, sources, dst.ID, relation.Major)
		if err != nil {
			return nil, err
		}
		for k, row := range rows {
			if len(row) > 0 {
				out[idx[k]] = ir.HaloRef(row[0].Halo.ID)
			}
		}
	}
	return out, nil
}

func matchImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	switch target := args[0].Const.(type) {
	case nil, ir.Null:
		return ir.NullColumn(len(env.Halos)), nil
	case ir.String:
		name := string(target)
		if strings.Contains(name, "/") {
			return matchTimestep(ctx, env, name)
		}
		return matchSimulation(ctx, env, name)
	default:
		return nil, newArgumentTypeError("match", 0, "want a timestep path, simulation name or None, got "+ir.Kind(target))
	}
}

func matchTimestep(ctx context.Context, env *Env, path string) (ir.Column, error) {
	dst, err := env.Reader().LookupTimestep(ctx, path)
	if errors.Is(err, graph.ErrTimestepNotFound) {
		env.Logger().Debug("match target not in catalog", "target", path)
		return ir.NullColumn(len(env.Halos)), nil
	}
	if err != nil {
		return nil, err
	}
	return matchGrouped(ctx, env, func(context.Context, graph.Timestep, graph.Sequence) (graph.Timestep, bool, error) {
		return dst, true, nil
	})
}

// matchSimulation targets, for each source timestep, the timestep of
// simulation closest in time.
func matchSimulation(ctx context.Context, env *Env, simulation string) (ir.Column, error) {
	other, err := env.cache.sequence(ctx, env.Reader(), simulation)
	if errors.Is(err, graph.ErrSimulationNotFound) {
		env.Logger().Debug("match target not in catalog", "target", simulation)
		return ir.NullColumn(len(env.Halos)), nil
	}
	if err != nil {
		return nil, err
	}
	return matchGrouped(ctx, env, func(_ context.Context, ts graph.Timestep, _ graph.Sequence) (graph.Timestep, bool, error) {
		return nearest(other, ts.TimeGyr)
	})
}

// nearest returns the timestep of seq closest to timeGyr; the earlier one
// wins a tie.
func nearest(seq graph.Sequence, timeGyr float64) (graph.Timestep, bool, error) {
	best := -1
	for i, ts := range seq {
		if best < 0 || math.Abs(ts.TimeGyr-timeGyr) < math.Abs(seq[best].TimeGyr-timeGyr) {
			best = i
		}
	}
	if best < 0 {
		return graph.Timestep{}, false, nil
	}
	return seq[best], true, nil
}

// steps reads an integral step count.
func steps(function string, a Arg) (int, error) {
	f, _ := ir.AsFloat(a.Const)
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, newArgumentTypeError(function, 0, fmt.Sprintf("want a whole number of steps, got %s", ir.Format(a.Const)))
	}
	return int(f), nil
}

func laterImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	n, err := steps("later", args[0])
	if err != nil {
		return nil, err
	}
	return matchGrouped(ctx, env, offset(n))
}

func earlierImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	n, err := steps("earlier", args[0])
	if err != nil {
		return nil, err
	}
	return matchGrouped(ctx, env, offset(-n))
}

// offset targets the timestep n places along the sequence. Running off
// either end leaves rows null.
func offset(n int) targetFunc {
	return func(_ context.Context, ts graph.Timestep, seq graph.Sequence) (graph.Timestep, bool, error) {
		dst, ok := seq.Next(ts.ID, n)
		return dst, ok, nil
	}
}

func latestImpl(ctx context.Context, env *Env, _ []Arg) (ir.Column, error) {
	return matchGrouped(ctx, env, func(_ context.Context, _ graph.Timestep, seq graph.Sequence) (graph.Timestep, bool, error) {
		dst, ok := seq.Final()
		return dst, ok, nil
	})
}

func earliestImpl(ctx context.Context, env *Env, _ []Arg) (ir.Column, error) {
	return matchGrouped(ctx, env, func(_ context.Context, _ graph.Timestep, seq graph.Sequence) (graph.Timestep, bool, error) {
		dst, ok := seq.First()
		return dst, ok, nil
	})
}

package live

import (
	"context"
	"math"
	"sort"

	"github.com/roach88/halodb/internal/fold"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
)

func hasPropertyImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	stored, err := env.Reader().Properties(ctx, graph.IDs(env.Halos), args[0].Name)
	if err != nil {
		return nil, err
	}
	out := make(ir.Column, len(stored))
	for i, v := range stored {
		out[i] = ir.Bool(!ir.IsNull(v))
	}
	return out, nil
}

func hasLinkImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	kind := graph.RelationKind(args[0].Name)
	out := make(ir.Column, len(env.Halos))
	for i, h := range env.Halos {
		links, err := env.Reader().Links(ctx, h.ID, kind, graph.Outgoing)
		if err != nil {
			return nil, err
		}
		out[i] = ir.Bool(len(links) > 0)
	}
	return out, nil
}

// linkImpl follows one outgoing link per halo. Without a determiner the
// strongest link wins; with one, the candidates are unfolded, the
// determiner is evaluated over all of them and the rows are refolded.
func linkImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	kind := graph.RelationKind(args[0].Name)
	rows := make([][]graph.HaloID, len(env.Halos))
	for i, h := range env.Halos {
		links, err := env.Reader().Links(ctx, h.ID, kind, graph.Outgoing)
		if err != nil {
			return nil, err
		}
		ranked, err := rankLinks(ctx, env, links)
		if err != nil {
			return nil, err
		}
		rows[i] = ranked
	}

	if len(args) < 2 {
		out := ir.NullColumn(len(rows))
		for i, row := range rows {
			if len(row) > 0 {
				out[i] = ir.HaloRef(row[0])
			}
		}
		return out, nil
	}

	mode := fold.Max
	if len(args) > 2 {
		m, err := fold.ParseMode(string(args[2].Const.(ir.String)))
		if err != nil {
			return nil, newArgumentTypeError("link", 2, err.Error())
		}
		mode = m
	}

	folder := fold.NewFolder[graph.HaloID](mode, 1)
	flat := folder.Unfold(rows)
	candidates := make([]graph.Halo, 0, len(flat))
	refs := make(ir.Column, len(flat))
	present := fold.NewMask(len(flat))
	for i, id := range flat {
		refs[i] = ir.HaloRef(id)
		h, ok, err := env.cache.halo(ctx, env.Reader(), id)
		if err != nil {
			return nil, err
		}
		if !ok {
			present.Invalidate(i)
			continue
		}
		candidates = append(candidates, h)
	}

	det, err := env.ev.property(ctx, env.sub(candidates), args[1].Name)
	if err != nil {
		return nil, err
	}
	folded := folder.Refold([]ir.Column{refs, present.Unmask(det)})
	return folded[0], nil
}

// rankLinks orders link targets by weight, strongest first, then by lowest
// halo number. NaN weights rank as zero; dangling targets go last.
func rankLinks(ctx context.Context, env *Env, links []graph.Link) ([]graph.HaloID, error) {
	type ranked struct {
		id     graph.HaloID
		weight float64
		number int64
		ok     bool
	}
	rs := make([]ranked, len(links))
	for i, l := range links {
		h, ok, err := env.cache.halo(ctx, env.Reader(), l.Target)
		if err != nil {
			return nil, err
		}
		w := l.Weight
		if math.IsNaN(w) {
			w = 0
		}
		rs[i] = ranked{id: l.Target, weight: w, number: h.Number, ok: ok}
	}
	sort.SliceStable(rs, func(a, b int) bool {
		if rs[a].ok != rs[b].ok {
			return rs[a].ok
		}
		if rs[a].weight != rs[b].weight {
			return rs[a].weight > rs[b].weight
		}
		return rs[a].number < rs[b].number
	})
	ids := make([]graph.HaloID, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	return ids, nil
}

func timeImpl(ctx context.Context, env *Env, _ []Arg) (ir.Column, error) {
	return perTimestep(ctx, env, func(ts graph.Timestep) ir.Value { return ir.Float(ts.TimeGyr) })
}

func redshiftImpl(ctx context.Context, env *Env, _ []Arg) (ir.Column, error) {
	return perTimestep(ctx, env, func(ts graph.Timestep) ir.Value { return ir.Float(ts.Redshift) })
}

func perTimestep(ctx context.Context, env *Env, get func(graph.Timestep) ir.Value) (ir.Column, error) {
	out := make(ir.Column, len(env.Halos))
	for i, h := range env.Halos {
		ts, err := env.Timestep(ctx, h)
		if err != nil {
			return nil, err
		}
		out[i] = get(ts)
	}
	return out, nil
}

func haloNumberImpl(_ context.Context, env *Env, _ []Arg) (ir.Column, error) {
	out := make(ir.Column, len(env.Halos))
	for i, h := range env.Halos {
		out[i] = ir.Int(h.Number)
	}
	return out, nil
}

func rawImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	return env.Reader().Properties(ctx, graph.IDs(env.Halos), args[0].Name)
}

func reassembleImpl(ctx context.Context, env *Env, args []Arg) (ir.Column, error) {
	mode := histogram.ModeMajor
	if len(args) > 1 {
		m, err := histogram.ParseMode(string(args[1].Const.(ir.String)))
		if err != nil {
			return nil, newArgumentTypeError("reassemble", 1, err.Error())
		}
		mode = m
	}
	return reassembleColumn(ctx, env, args[0].Name, mode)
}

func reassembleColumn(ctx context.Context, env *Env, name string, mode histogram.Mode) (ir.Column, error) {
	params := env.histogramParams(name)
	out := make(ir.Column, len(env.Halos))
	for i, h := range env.Halos {
		v, err := env.ev.reassembler.Reassemble(ctx, h, name, params, mode)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

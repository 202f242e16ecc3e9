package properties

import (
	"context"
	"sort"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
)

// Standard returns a registry with the providers every catalog knows about.
// histograms adds or overrides time-chunked properties by name.
func Standard(histograms map[string]histogram.Params, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)

	sfr := histogram.DefaultParams
	if p, ok := histograms["SFR_histogram"]; ok {
		sfr = p
	}
	if err := r.Register(Provider{
		Names:           []string{"SFR_histogram"},
		RequiresRawData: true,
		WorksWith:       Pynbody,
		Histogram:       &sfr,
	}); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(histograms))
	for name := range histograms {
		if name != "SFR_histogram" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		params := histograms[name]
		if err := r.Register(Provider{
			Names:           []string{name},
			RequiresRawData: true,
			Histogram:       &params,
		}); err != nil {
			return nil, err
		}
	}

	if err := r.Register(Provider{
		Names: []string{"n_progenitors"},
		Live:  countLinks(graph.Progenitor),
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// countLinks counts each halo's outgoing links of kind.
func countLinks(kind graph.RelationKind) LiveFunc {
	return func(ctx context.Context, reader graph.Reader, _ string, halos []graph.Halo) (ir.Column, error) {
		out := make(ir.Column, len(halos))
		for i, h := range halos {
			links, err := reader.Links(ctx, h.ID, kind, graph.Outgoing)
			if err != nil {
				return nil, err
			}
			out[i] = ir.Int(len(links))
		}
		return out, nil
	}
}

package properties

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/halodb/internal/fold"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
)

// foldName is the key property names are compared under: NFC-normalised
// and case folded. A Caser holds state, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

type entry struct {
	Provider
	seq int
}

// Registry holds providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers []entry
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds p. WorksWith defaults to Output.
func (r *Registry) Register(p Provider) error {
	if p.WorksWith == NoHandler {
		p.WorksWith = Output
	}
	if err := p.validate(); err != nil {
		return fmt.Errorf("register %v: %w", p.Names, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, entry{Provider: p, seq: len(r.providers)})
	return nil
}

// MustRegister is Register for static tables. Panics on error.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// moreSpecific orders candidates: deeper handler, then higher priority,
// then earlier registration.
func moreSpecific(a, b entry) bool {
	da, db := a.WorksWith.Depth(), b.WorksWith.Depth()
	if da != db {
		return da > db
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

// candidates returns the providers of name usable with handler, most
// specific first.
func (r *Registry) candidates(name string, handler Handler) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entry
	for _, e := range r.providers {
		if e.Provides(name) && e.accepts(handler) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return moreSpecific(out[i], out[j]) })
	return out
}

// Providing returns the most specialised provider of name that works with
// handler. NoHandler restricts the choice to live providers.
func (r *Registry) Providing(name string, handler Handler) (Provider, error) {
	c := r.candidates(name, handler)
	if len(c) == 0 {
		return Provider{}, fmt.Errorf("%w %q (handler %q)", ErrNoProvider, name, handler)
	}
	return c[0].Provider, nil
}

// All returns every provider of name regardless of handler, most specific
// first.
func (r *Registry) All(name string) []Provider {
	r.mu.RLock()
	var matched []entry
	for _, e := range r.providers {
		if e.Provides(name) {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return moreSpecific(matched[i], matched[j]) })
	out := make([]Provider, len(matched))
	for i, e := range matched {
		out[i] = e.Provider
	}
	return out
}

// Names returns every provided property name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, e := range r.providers {
		for _, n := range e.Names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// CanLiveCalculate reports whether some provider computes name without raw
// data.
func (r *Registry) CanLiveCalculate(name string) bool {
	return len(r.candidates(name, NoHandler)) > 0
}

// LiveCalculate computes name for halos using the most specific live
// provider. Halos missing any of the provider's required properties get
// null rows.
func (r *Registry) LiveCalculate(ctx context.Context, reader graph.Reader, name string, halos []graph.Halo) (ir.Column, error) {
	p, err := r.Providing(name, NoHandler)
	if err != nil {
		if len(r.All(name)) > 0 {
			return nil, fmt.Errorf("live calculate %s: %w", name, ErrRequiresRawData)
		}
		return nil, fmt.Errorf("live calculate: %w", err)
	}

	mask := fold.NewMask(len(halos))
	ids := graph.IDs(halos)
	for _, req := range p.Requires {
		col, err := reader.Properties(ctx, ids, req)
		if err != nil {
			return nil, fmt.Errorf("live calculate %s: %w", name, err)
		}
		mask.MarkNull(col)
	}
	if mask.Count() == 0 {
		return ir.NullColumn(len(halos)), nil
	}

	idx := mask.Indices()
	accepted := make([]graph.Halo, len(idx))
	for i, j := range idx {
		accepted[i] = halos[j]
	}
	col, err := p.Live(ctx, reader, name, accepted)
	if err != nil {
		return nil, fmt.Errorf("live calculate %s: %w", name, err)
	}
	if len(col) != len(accepted) {
		return nil, fmt.Errorf("live calculate %s: provider returned %d rows for %d halos", name, len(col), len(accepted))
	}
	r.logger.Debug("live calculated property", "property", name, "halos", len(halos), "accepted", len(accepted))
	return mask.Unmask(col), nil
}

// HistogramParams returns the binning of name when its most specific
// provider is time-chunked.
func (r *Registry) HistogramParams(name string) (histogram.Params, bool) {
	for _, p := range r.All(name) {
		if p.Histogram != nil {
			return *p.Histogram, true
		}
	}
	return histogram.Params{}, false
}

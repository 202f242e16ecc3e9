package relation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/halodb/internal/graph"
)

// ErrUnknownRelation is returned when a traversal names a relation kind
// the strategy cannot follow.
var ErrUnknownRelation = errors.New("unknown relation kind")

const (
	// DefaultMaxHops is the hop ceiling when none is configured.
	DefaultMaxHops = 100

	// MaxHopsLimit caps WithMaxHops.
	MaxHopsLimit = 10000
)

// Policy selects how many candidates a row keeps.
type Policy int

const (
	// Major keeps the single best candidate.
	Major Policy = iota
	// All keeps every candidate, best first.
	All
)

func (p Policy) String() string {
	if p == All {
		return "all"
	}
	return "major"
}

// ParsePolicy parses "major" or "all".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "major":
		return Major, nil
	case "all":
		return All, nil
	default:
		return 0, fmt.Errorf("unknown policy %q: want major or all", s)
	}
}

// Candidate is a halo reached by traversal.
type Candidate struct {
	Halo    graph.Halo
	Depth   int     // hops from the source; 0 for the source itself
	Weight  float64 // product of link weights along the path
	TimeGyr float64 // time of the candidate's timestep
}

// Row holds one source's candidates, best first. A nil Row is a null result.
type Row []Candidate

// Strategy resolves halo correspondence across timesteps.
// Safe for concurrent use if the underlying Reader is.
type Strategy struct {
	reader  graph.Reader
	maxHops int
	logger  *slog.Logger
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithMaxHops sets the hop ceiling, clamped to [1, MaxHopsLimit].
func WithMaxHops(n int) Option {
	return func(s *Strategy) {
		switch {
		case n < 1:
			n = 1
		case n > MaxHopsLimit:
			n = MaxHopsLimit
		}
		s.maxHops = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Strategy) {
		s.logger = logger
	}
}

// New creates a Strategy reading from reader.
func New(reader graph.Reader, opts ...Option) *Strategy {
	s := &Strategy{
		reader:  reader,
		maxHops: DefaultMaxHops,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxHops returns the configured hop ceiling.
func (s *Strategy) MaxHops() int {
	return s.maxHops
}

// Match finds each source's counterpart in the target timestep.
//
// The relation follows from where the target lies: an earlier timestep of
// the same simulation is reached through progenitors, a later one through
// descendants, and a timestep of another simulation through sameas links.
// A source already in the target timestep matches itself.
//
// The result has one Row per source, in source order.
func (s *Strategy) Match(ctx context.Context, sources []graph.Halo, target graph.TimestepID, policy Policy) ([]Row, error) {
	ctx, span := tracer.Start(ctx, "relation.Match", trace.WithAttributes(
		attribute.Int("sources", len(sources)),
		attribute.String("policy", policy.String()),
	))
	defer span.End()

	return s.match(ctx, sources, target, "", policy)
}

// MatchVia is Match with an explicit relation kind.
// Returns ErrUnknownRelation before any traversal if kind is not traversable.
func (s *Strategy) MatchVia(ctx context.Context, sources []graph.Halo, target graph.TimestepID, kind graph.RelationKind, policy Policy) ([]Row, error) {
	if !kind.Traversable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, kind)
	}

	ctx, span := tracer.Start(ctx, "relation.MatchVia", trace.WithAttributes(
		attribute.Int("sources", len(sources)),
		attribute.String("relation", string(kind)),
		attribute.String("policy", policy.String()),
	))
	defer span.End()

	return s.match(ctx, sources, target, kind, policy)
}

func (s *Strategy) match(ctx context.Context, sources []graph.Halo, targetID graph.TimestepID, kind graph.RelationKind, policy Policy) ([]Row, error) {
	steps := newStepCache(s.reader)
	target, err := steps.get(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("match target: %w", err)
	}

	rows := make([]Row, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		k := kind
		if k == "" {
			k, err = steps.infer(ctx, src, target)
			if err != nil {
				return nil, fmt.Errorf("match halo %d: %w", src.ID, err)
			}
		}

		row, reason, err := s.resolve(ctx, steps, src, target, k)
		if err != nil {
			return nil, fmt.Errorf("match halo %d: %w", src.ID, err)
		}
		if row == nil {
			s.recordNull(src.ID, k, reason)
			continue
		}
		rows[i] = policy.apply(row)
	}
	return rows, nil
}

// node is a halo on the traversal frontier.
type node struct {
	halo   graph.Halo
	ts     graph.Timestep
	idx    int
	depth  int
	weight float64
}

// resolve runs the breadth-first expansion for one source.
// A nil row comes with the reason it is null.
func (s *Strategy) resolve(ctx context.Context, steps *stepCache, src graph.Halo, target graph.Timestep, kind graph.RelationKind) (Row, NullReason, error) {
	if src.Timestep == target.ID {
		return Row{{Halo: src, Weight: 1, TimeGyr: target.TimeGyr}}, "", nil
	}

	srcTS, srcIdx, err := steps.locate(ctx, src.Timestep)
	if err != nil {
		return nil, "", err
	}
	_, targetIdx, err := steps.locate(ctx, target.ID)
	if err != nil {
		return nil, "", err
	}

	seen := newVisited(src.ID)
	budget := NewHopBudget(s.maxHops)
	defer func() {
		traversalHops.WithLabelValues(string(kind)).Observe(float64(budget.Current()))
	}()

	found := make(map[graph.HaloID]Candidate)
	frontier := []node{{halo: src, ts: srcTS, idx: srcIdx, weight: 1}}

	for len(frontier) > 0 {
		if err := budget.Spend(src.ID); err != nil {
			s.logger.Debug("hop ceiling reached", "source", src.ID, "found", len(found), "err", err)
			if len(found) == 0 {
				return nil, ReasonCeiling, nil
			}
			// Candidates already reached are kept.
			break
		}

		next := make(map[graph.HaloID]node)
		for _, n := range frontier {
			edges, err := s.edges(ctx, n.halo.ID, kind)
			if err != nil {
				return nil, "", err
			}
			for _, e := range edges {
				h, err := s.reader.Halo(ctx, e.to)
				if errors.Is(err, graph.ErrHaloNotFound) {
					continue
				}
				if err != nil {
					return nil, "", err
				}
				if h.Timestep == n.halo.Timestep {
					s.logger.Debug("same-timestep edge abandons row",
						"source", src.ID, "from", n.halo.ID, "to", h.ID)
					return nil, ReasonIllegalEdge, nil
				}

				depth := n.depth + 1
				weight := n.weight * e.weight
				if h.Timestep == target.ID {
					cand := Candidate{Halo: h, Depth: depth, Weight: weight, TimeGyr: target.TimeGyr}
					if prev, ok := found[h.ID]; !ok || better(cand, prev) {
						found[h.ID] = cand
					}
					continue
				}
				if seen.has(h.ID) {
					continue
				}
				ts, idx, err := steps.locate(ctx, h.Timestep)
				if err != nil {
					return nil, "", err
				}
				if !between(kind, target, targetIdx, ts, idx, n.idx) {
					continue
				}
				if prev, ok := next[h.ID]; !ok || weight > prev.weight {
					next[h.ID] = node{halo: h, ts: ts, idx: idx, depth: depth, weight: weight}
				}
			}
		}

		frontier = frontier[:0]
		for id, n := range next {
			seen.add(id)
			frontier = append(frontier, n)
		}
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].halo.ID < frontier[j].halo.ID })
	}

	if len(found) == 0 {
		return nil, ReasonUnreachable, nil
	}
	row := make(Row, 0, len(found))
	for _, c := range found {
		row = append(row, c)
	}
	sortRow(row)
	return row, "", nil
}

// between reports whether an intermediate timestep lies strictly between
// the current position and the target, so expansion never overshoots.
func between(kind graph.RelationKind, target graph.Timestep, targetIdx int, ts graph.Timestep, idx, currentIdx int) bool {
	switch kind {
	case graph.Progenitor:
		return ts.Simulation == target.Simulation && targetIdx < idx && idx < currentIdx
	case graph.Descendant:
		return ts.Simulation == target.Simulation && currentIdx < idx && idx < targetIdx
	default:
		return true
	}
}

type edge struct {
	to     graph.HaloID
	weight float64
}

// edges returns the neighbours of halo along kind: its outgoing links of that
// kind plus incoming links of the reverse kind.
func (s *Strategy) edges(ctx context.Context, halo graph.HaloID, kind graph.RelationKind) ([]edge, error) {
	out, err := s.reader.Links(ctx, halo, kind, graph.Outgoing)
	if err != nil {
		return nil, fmt.Errorf("links of halo %d: %w", halo, err)
	}
	in, err := s.reader.Links(ctx, halo, kind.Reverse(), graph.Incoming)
	if err != nil {
		return nil, fmt.Errorf("links of halo %d: %w", halo, err)
	}

	edges := make([]edge, 0, len(out)+len(in))
	for _, l := range out {
		edges = append(edges, edge{to: l.Target, weight: linkWeight(l)})
	}
	for _, l := range in {
		edges = append(edges, edge{to: l.Source, weight: linkWeight(l)})
	}
	return edges, nil
}

func linkWeight(l graph.Link) float64 {
	if math.IsNaN(l.Weight) {
		return 0
	}
	return l.Weight
}

func (s *Strategy) recordNull(source graph.HaloID, kind graph.RelationKind, reason NullReason) {
	nullRows.WithLabelValues(string(reason)).Inc()
	s.logger.Debug("traversal produced null row",
		"source", source, "relation", kind, "reason", reason)
}

// better reports whether a ranks ahead of b.
func better(a, b Candidate) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.Weight > b.Weight
}

func sortRow(row Row) {
	sort.Slice(row, func(i, j int) bool {
		a, b := row[i], row[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Halo.Number != b.Halo.Number {
			return a.Halo.Number < b.Halo.Number
		}
		return a.Halo.ID < b.Halo.ID
	})
}

func (p Policy) apply(row Row) Row {
	if p == Major && len(row) > 1 {
		return row[:1:1]
	}
	return row
}

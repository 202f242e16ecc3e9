package crosslink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/halodb/internal/graph"
)

// ErrSelfLink is returned when asked to link a simulation or timestep to
// itself.
var ErrSelfLink = errors.New("cannot crosslink to itself")

// NoMatch marks a catalog entry without a counterpart.
const NoMatch = -1

// Linker is what crosslinking needs from a catalog. store.Store
// satisfies it.
type Linker interface {
	graph.Catalog
	AddLink(ctx context.Context, l graph.Link) error
}

// transactor is implemented by stores that can group writes.
type transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MatchCatalog holds the halo-number correspondence between two timesteps.
// Forward[i] is the target halo matched to source halo i; Backward[j] the
// source halo matched to target halo j. NoMatch marks no counterpart.
type MatchCatalog struct {
	Forward  []int64 `yaml:"forward"`
	Backward []int64 `yaml:"backward"`
}

// LoadCatalog reads a MatchCatalog from a YAML file.
func LoadCatalog(path string) (MatchCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MatchCatalog{}, fmt.Errorf("read match catalog: %w", err)
	}
	var c MatchCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return MatchCatalog{}, fmt.Errorf("parse match catalog %s: %w", path, err)
	}
	return c, nil
}

// agreed returns the target matched to source i when forward and backward
// agree.
func (c MatchCatalog) agreed(i int) (int64, bool) {
	j := c.Forward[i]
	if j < 0 || j >= int64(len(c.Backward)) {
		return 0, false
	}
	return j, c.Backward[j] == int64(i)
}

// Result counts what a crosslink run did.
type Result struct {
	// Created is the number of new links.
	Created int
	// Existing is the number of agreed pairs already linked.
	Existing int
	// Disagreed is the number of entries where the catalogs disagree.
	Disagreed int
	// Missing is the number of agreed pairs with a halo absent from the
	// catalog.
	Missing int
	// Pairs is the number of timestep pairs linked by Simulations.
	Pairs int
}

func (r *Result) add(o Result) {
	r.Created += o.Created
	r.Existing += o.Existing
	r.Disagreed += o.Disagreed
	r.Missing += o.Missing
	r.Pairs += o.Pairs
}

// Crosslinker creates sameas links.
type Crosslinker struct {
	linker Linker
	logger *slog.Logger
}

// New returns a Crosslinker writing through linker.
func New(linker Linker, logger *slog.Logger) *Crosslinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crosslinker{linker: linker, logger: logger}
}

// Timesteps links halos of from to halos of to where cat agrees in both
// directions. Links run from -> to with weight 1. Pairs already linked
// are left alone, so a rerun creates nothing.
func (c *Crosslinker) Timesteps(ctx context.Context, from, to graph.Timestep, cat MatchCatalog) (Result, error) {
	if from.ID == to.ID {
		return Result{}, fmt.Errorf("crosslink %s: %w", from.Path(), ErrSelfLink)
	}

	var res Result
	run := func(ctx context.Context) error {
		var err error
		res, err = c.timesteps(ctx, from, to, cat)
		return err
	}
	var err error
	if tx, ok := c.linker.(transactor); ok {
		err = tx.WithTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("crosslink %s -> %s: %w", from.Path(), to.Path(), err)
	}

	c.logger.Info("crosslinked timesteps",
		"from", from.Path(), "to", to.Path(),
		"created", res.Created, "existing", res.Existing,
		"disagreed", res.Disagreed, "missing", res.Missing)
	return res, nil
}

func (c *Crosslinker) timesteps(ctx context.Context, from, to graph.Timestep, cat MatchCatalog) (Result, error) {
	src, err := c.byNumber(ctx, from.ID)
	if err != nil {
		return Result{}, err
	}
	dst, err := c.byNumber(ctx, to.ID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i := range cat.Forward {
		if cat.Forward[i] == NoMatch {
			continue
		}
		j, ok := cat.agreed(i)
		if !ok {
			c.logger.Debug("skip halo: backward match disagrees", "halo", i, "forward", cat.Forward[i])
			res.Disagreed++
			continue
		}
		h1, ok1 := src[int64(i)]
		h2, ok2 := dst[j]
		if !ok1 || !ok2 {
			c.logger.Debug("no catalog entry for link", "from", i, "to", j)
			res.Missing++
			continue
		}

		linked, err := c.linked(ctx, h1.ID, h2.ID)
		if err != nil {
			return Result{}, err
		}
		if linked {
			res.Existing++
			continue
		}
		if err := c.linker.AddLink(ctx, graph.Link{Source: h1.ID, Target: h2.ID, Relation: graph.SameAs, Weight: 1}); err != nil {
			return Result{}, err
		}
		res.Created++
	}
	return res, nil
}

func (c *Crosslinker) byNumber(ctx context.Context, ts graph.TimestepID) (map[int64]graph.Halo, error) {
	halos, err := c.linker.HalosAt(ctx, ts)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]graph.Halo, len(halos))
	for _, h := range halos {
		out[h.Number] = h
	}
	return out, nil
}

func (c *Crosslinker) linked(ctx context.Context, from, to graph.HaloID) (bool, error) {
	links, err := c.linker.Links(ctx, from, graph.SameAs, graph.Outgoing)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.Target == to {
			return true, nil
		}
	}
	return false, nil
}

// Pair is a source timestep and the target timestep it links to.
type Pair struct {
	From, To graph.Timestep
}

// PairByTime pairs every timestep of a with the timestep of b nearest in
// time; the earlier one wins a tie.
func PairByTime(a, b graph.Sequence) []Pair {
	if len(b) == 0 {
		return nil
	}
	pairs := make([]Pair, 0, len(a))
	for _, ts := range a {
		best := b[0]
		for _, cand := range b[1:] {
			if math.Abs(cand.TimeGyr-ts.TimeGyr) < math.Abs(best.TimeGyr-ts.TimeGyr) {
				best = cand
			}
		}
		pairs = append(pairs, Pair{From: ts, To: best})
	}
	return pairs
}

// CatalogSource supplies the match catalog for a timestep pair.
type CatalogSource func(ctx context.Context, from, to graph.Timestep) (MatchCatalog, error)

// CatalogFileName is the file DirSource reads for a timestep pair.
func CatalogFileName(from, to graph.Timestep) string {
	return from.Extension + "__" + to.Extension + ".yaml"
}

// DirSource reads the catalog of each pair from dir, one file per pair
// named by CatalogFileName. A missing file is an error.
func DirSource(dir string) CatalogSource {
	return func(_ context.Context, from, to graph.Timestep) (MatchCatalog, error) {
		return LoadCatalog(filepath.Join(dir, CatalogFileName(from, to)))
	}
}

// Simulations crosslinks every timestep of simA to its nearest-time
// timestep in simB.
func (c *Crosslinker) Simulations(ctx context.Context, simA, simB string, catalogs CatalogSource) (Result, error) {
	if simA == simB {
		return Result{}, fmt.Errorf("crosslink %s: %w", simA, ErrSelfLink)
	}
	seqA, err := c.linker.Sequence(ctx, simA)
	if err != nil {
		return Result{}, fmt.Errorf("crosslink %s: %w", simA, err)
	}
	seqB, err := c.linker.Sequence(ctx, simB)
	if err != nil {
		return Result{}, fmt.Errorf("crosslink %s: %w", simB, err)
	}

	var total Result
	for _, p := range PairByTime(seqA, seqB) {
		cat, err := catalogs(ctx, p.From, p.To)
		if err != nil {
			return total, fmt.Errorf("crosslink %s -> %s: %w", p.From.Path(), p.To.Path(), err)
		}
		res, err := c.Timesteps(ctx, p.From, p.To, cat)
		if err != nil {
			return total, err
		}
		res.Pairs = 1
		total.add(res)
	}
	return total, nil
}

package histogram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/relation"
)

var tracer = otel.Tracer("github.com/roach88/halodb/internal/histogram")

// ErrUnknownMode is returned for a reassembly mode other than raw, place,
// major or sum.
var ErrUnknownMode = errors.New("unknown reassembly mode")

// Mode selects how a time-chunked property is reassembled.
type Mode string

const (
	ModeRaw   Mode = "raw"
	ModePlace Mode = "place"
	ModeMajor Mode = "major"
	ModeSum   Mode = "sum"
)

// ParseMode parses a reassembly mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRaw, ModePlace, ModeMajor, ModeSum:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Reassembler rebuilds time-chunked properties from a catalog.
type Reassembler struct {
	reader graph.Reader
	logger *slog.Logger
}

// ReassemblerOption configures a Reassembler.
type ReassemblerOption func(*Reassembler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ReassemblerOption {
	return func(r *Reassembler) {
		r.logger = logger
	}
}

// NewReassembler creates a Reassembler reading from reader.
func NewReassembler(reader graph.Reader, opts ...ReassemblerOption) *Reassembler {
	r := &Reassembler{reader: reader, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reassemble returns property of halo reassembled by mode.
//
// The result is null when the halo has no stored chunk (raw, place) or no
// chunk anywhere on its progenitor chain (major, sum), or when the chain
// cannot be walked. It is an ir.Array otherwise.
func (r *Reassembler) Reassemble(ctx context.Context, halo graph.Halo, property string, params Params, mode Mode) (ir.Value, error) {
	ctx, span := tracer.Start(ctx, "histogram.Reassemble", trace.WithAttributes(
		attribute.Int64("halo", int64(halo.ID)),
		attribute.String("property", property),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}

	switch mode {
	case ModeRaw:
		col, err := r.reader.Properties(ctx, []graph.HaloID{halo.ID}, property)
		if err != nil {
			return nil, fmt.Errorf("reassemble %s: %w", property, err)
		}
		return col[0], nil
	case ModePlace:
		return r.place(ctx, halo, property, params)
	case ModeMajor:
		return r.walk(ctx, halo, property, params, relation.Major)
	case ModeSum:
		return r.walk(ctx, halo, property, params, relation.All)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func (r *Reassembler) place(ctx context.Context, halo graph.Halo, property string, params Params) (ir.Value, error) {
	col, err := r.reader.Properties(ctx, []graph.HaloID{halo.ID}, property)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}
	chunk, ok := col[0].(ir.Array)
	if !ok {
		return ir.Null{}, nil
	}
	ts, err := r.reader.Timestep(ctx, halo.Timestep)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}
	return ir.Array(params.Place(ts.TimeGyr, chunk)), nil
}

func (r *Reassembler) walk(ctx context.Context, halo graph.Halo, property string, params Params, policy relation.Policy) (ir.Value, error) {
	ts, err := r.reader.Timestep(ctx, halo.Timestep)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}
	seq, err := r.reader.Sequence(ctx, ts.Simulation)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}

	// A chain can never be longer than the simulation.
	strategy := relation.New(r.reader, relation.WithMaxHops(len(seq)), relation.WithLogger(r.logger))
	chain, err := strategy.Walk(ctx, halo, graph.Progenitor, policy)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}
	if chain == nil {
		return ir.Null{}, nil
	}

	ids := make([]graph.HaloID, len(chain))
	for i, c := range chain {
		ids[i] = c.Halo.ID
	}
	chunks, err := r.reader.Properties(ctx, ids, property)
	if err != nil {
		return nil, fmt.Errorf("reassemble %s: %w", property, err)
	}

	entries := make([]Entry, 0, len(chain))
	for i, c := range chain {
		chunk, ok := chunks[i].(ir.Array)
		if !ok {
			continue
		}
		entries = append(entries, Entry{TimeGyr: c.TimeGyr, Chunk: chunk})
	}
	if len(entries) == 0 {
		return ir.Null{}, nil
	}

	r.logger.Debug("reassembling histogram",
		"halo", halo.ID, "property", property, "policy", policy, "chunks", len(entries))
	return ir.Array(params.Accumulate(ts.TimeGyr, entries, policy == relation.All)), nil
}

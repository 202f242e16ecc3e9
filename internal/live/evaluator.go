package live

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/halodb/internal/expr"
	"github.com/roach88/halodb/internal/fold"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/relation"
)

// PropertySource supplies properties that are computed on demand instead of
// read from the catalog, and the binning of time-chunked properties.
type PropertySource interface {
	// CanLiveCalculate reports whether name can be computed without raw
	// simulation data.
	CanLiveCalculate(name string) bool
	// LiveCalculate computes name for halos, one row per halo.
	LiveCalculate(ctx context.Context, reader graph.Reader, name string, halos []graph.Halo) (ir.Column, error)
	// HistogramParams returns the binning of a time-chunked property.
	HistogramParams(name string) (histogram.Params, bool)
}

// Evaluator interprets expressions over batches of halos.
//
// Evaluation is single-threaded and batch-aligned: every node yields one
// row per halo in the batch. Missing data yields null rows, never errors.
type Evaluator struct {
	reader      graph.Reader
	registry    *Registry
	strategy    *relation.Strategy
	props       PropertySource
	params      histogram.Params
	reassembler *histogram.Reassembler
	logger      *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry sets the function registry. Defaults to Builtins().
func WithRegistry(r *Registry) Option {
	return func(ev *Evaluator) {
		ev.registry = r
	}
}

// WithStrategy sets the traversal strategy used by match and friends.
// Defaults to relation.New(reader).
func WithStrategy(s *relation.Strategy) Option {
	return func(ev *Evaluator) {
		ev.strategy = s
	}
}

// WithProperties sets the source of live-calculated properties.
func WithProperties(p PropertySource) Option {
	return func(ev *Evaluator) {
		ev.props = p
	}
}

// WithHistogramParams sets the binning used for time-chunked properties
// the PropertySource does not describe. Defaults to histogram.DefaultParams.
func WithHistogramParams(p histogram.Params) Option {
	return func(ev *Evaluator) {
		ev.params = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ev *Evaluator) {
		ev.logger = logger
	}
}

// New creates an Evaluator over reader.
func New(reader graph.Reader, opts ...Option) *Evaluator {
	ev := &Evaluator{
		reader: reader,
		params: histogram.DefaultParams,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ev)
	}
	if ev.registry == nil {
		ev.registry = Builtins()
	}
	if ev.strategy == nil {
		ev.strategy = relation.New(reader, relation.WithLogger(ev.logger))
	}
	ev.reassembler = histogram.NewReassembler(reader, histogram.WithLogger(ev.logger))
	return ev
}

// Registry returns the evaluator's function registry.
func (ev *Evaluator) Registry() *Registry {
	return ev.registry
}

// Compile parses src and checks it against the registry.
func (ev *Evaluator) Compile(src string) (expr.Expr, error) {
	e, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := ev.Check(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Check reports the first structural, unknown-function, arity or
// argument-type problem in e. It needs no data.
func (ev *Evaluator) Check(e expr.Expr) error {
	if res := expr.Validate(e); !res.Valid {
		return &Error{
			Code:    CodeInvalidExpression,
			Message: strings.Join(res.Problems, "; "),
		}
	}
	return ev.check(e)
}

func (ev *Evaluator) check(e expr.Expr) error {
	switch n := e.(type) {
	case expr.Leaf, expr.Property:
		return nil
	case *expr.Leaf, *expr.Property:
		return nil
	case expr.Call:
		return ev.checkCall(n)
	case *expr.Call:
		return ev.checkCall(*n)
	case expr.Chain:
		return ev.checkChain(n)
	case *expr.Chain:
		return ev.checkChain(*n)
	default:
		return &Error{Code: CodeInvalidExpression, Message: fmt.Sprintf("unsupported node %T", e)}
	}
}

func (ev *Evaluator) checkCall(c expr.Call) error {
	d, ok := ev.registry.Lookup(c.Name)
	if !ok {
		return newUnknownFunctionError(c.Name)
	}
	lo, hi := d.Arity()
	if len(c.Args) < lo || (hi >= 0 && len(c.Args) > hi) {
		return newArityError(d, len(c.Args))
	}
	for i, a := range c.Args {
		spec := d.spec(i)
		if err := checkArg(d.Name, i, spec.Kind, a); err != nil {
			return err
		}
		if spec.Kind == ArgValue {
			if err := ev.check(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkArg(function string, i int, kind ArgKind, a expr.Expr) error {
	switch kind {
	case ArgValue:
		return nil
	case ArgPropertyRef, ArgLinkRef:
		if _, ok := propertyName(a); !ok {
			return newArgumentTypeError(function, i, "want a "+kind.String()+", got "+expr.String(a))
		}
		return nil
	}

	v, ok := constant(a)
	if !ok {
		return newArgumentTypeError(function, i, "want a "+kind.String()+", got "+expr.String(a))
	}
	switch kind {
	case ArgFixedNumeric:
		if _, numeric := ir.AsFloat(v); !numeric {
			return newArgumentTypeError(function, i, "want a numeric constant, got "+ir.Kind(v))
		}
	case ArgFixedString:
		if _, isString := v.(ir.String); !isString {
			return newArgumentTypeError(function, i, "want a string constant, got "+ir.Kind(v))
		}
	}
	return nil
}

func (ev *Evaluator) checkChain(c expr.Chain) error {
	switch h := c.Halos.(type) {
	case expr.Leaf, *expr.Leaf:
		return &Error{Code: CodeArgumentType, Message: "chain starts with a constant: " + expr.String(c.Halos)}
	case expr.Call:
		if err := ev.requireHalos(h); err != nil {
			return err
		}
	case *expr.Call:
		if err := ev.requireHalos(*h); err != nil {
			return err
		}
	}
	if err := ev.check(c.Halos); err != nil {
		return err
	}
	return ev.check(c.Then)
}

func (ev *Evaluator) requireHalos(c expr.Call) error {
	d, ok := ev.registry.Lookup(c.Name)
	if !ok {
		return newUnknownFunctionError(c.Name)
	}
	if !d.ReturnsHalos {
		return &Error{Code: CodeArgumentType, Function: c.Name, Message: "does not return halos and cannot start a chain"}
	}
	return nil
}

// Evaluate checks e and evaluates it over halos. The result has exactly
// len(halos) rows, in order.
func (ev *Evaluator) Evaluate(ctx context.Context, e expr.Expr, halos []graph.Halo) (ir.Column, error) {
	ctx, span := tracer.Start(ctx, "live.Evaluate", trace.WithAttributes(
		attribute.String("expression", expr.String(e)),
		attribute.Int("halos", len(halos)),
	))
	defer span.End()
	start := time.Now()

	if err := ev.Check(e); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	env := &Env{Halos: halos, ev: ev, cache: newLookupCache()}
	col, err := ev.eval(ctx, env, e)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("evaluate %s: %w", expr.String(e), err)
	}
	if len(col) != len(halos) {
		panic(fmt.Sprintf("live: %s produced %d rows for %d halos", expr.String(e), len(col), len(halos)))
	}

	nulls := col.CountNull()
	evaluatedRows.WithLabelValues("null").Add(float64(nulls))
	evaluatedRows.WithLabelValues("value").Add(float64(len(col) - nulls))
	evaluateDuration.Observe(time.Since(start).Seconds())
	ev.logger.Debug("expression evaluated",
		"expression", expr.String(e), "halos", len(halos), "nulls", nulls, "elapsed", time.Since(start))
	return col, nil
}

// eval is the interpreter: one case per node variant.
func (ev *Evaluator) eval(ctx context.Context, env *Env, e expr.Expr) (ir.Column, error) {
	if len(env.Halos) == 0 {
		return ir.Column{}, nil
	}
	switch n := e.(type) {
	case expr.Leaf:
		return ir.Repeat(n.Value, len(env.Halos)), nil
	case *expr.Leaf:
		return ir.Repeat(n.Value, len(env.Halos)), nil
	case expr.Property:
		return ev.property(ctx, env, n.Name)
	case *expr.Property:
		return ev.property(ctx, env, n.Name)
	case expr.Call:
		return ev.call(ctx, env, n)
	case *expr.Call:
		return ev.call(ctx, env, *n)
	case expr.Chain:
		return ev.chain(ctx, env, n)
	case *expr.Chain:
		return ev.chain(ctx, env, *n)
	default:
		return nil, fmt.Errorf("unsupported node %T", e)
	}
}

// property reads a stored property. Time-chunked properties are reassembled
// along the major progenitor line; rows with nothing stored fall back to
// live calculation when the property source can compute the name.
func (ev *Evaluator) property(ctx context.Context, env *Env, name string) (ir.Column, error) {
	if ev.props != nil {
		if _, chunked := ev.props.HistogramParams(name); chunked {
			return reassembleColumn(ctx, env, name, histogram.ModeMajor)
		}
	}

	col, err := ev.reader.Properties(ctx, graph.IDs(env.Halos), name)
	if err != nil {
		return nil, err
	}
	if ev.props == nil || col.CountNull() == 0 || !ev.props.CanLiveCalculate(name) {
		return col, nil
	}

	missing := missingRows(col)
	halos := make([]graph.Halo, len(missing))
	for i, j := range missing {
		halos[i] = env.Halos[j]
	}
	computed, err := ev.props.LiveCalculate(ctx, ev.reader, name, halos)
	if err != nil {
		return nil, fmt.Errorf("live calculate %s: %w", name, err)
	}
	if len(computed) != len(halos) {
		return nil, fmt.Errorf("live calculate %s: %d rows for %d halos", name, len(computed), len(halos))
	}
	col.Scatter(missing, computed)
	return col, nil
}

func missingRows(col ir.Column) []int {
	var idx []int
	for i, v := range col {
		if ir.IsNull(v) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (ev *Evaluator) call(ctx context.Context, env *Env, c expr.Call) (ir.Column, error) {
	d, ok := ev.registry.Lookup(c.Name)
	if !ok {
		return nil, newUnknownFunctionError(c.Name)
	}
	args := make([]Arg, len(c.Args))
	for i, a := range c.Args {
		kind := d.spec(i).Kind
		args[i].Kind = kind
		switch kind {
		case ArgValue:
			col, err := ev.eval(ctx, env, a)
			if err != nil {
				return nil, err
			}
			args[i].Values = col
		case ArgPropertyRef, ArgLinkRef:
			args[i].Name, _ = propertyName(a)
		default:
			args[i].Const, _ = constant(a)
		}
	}

	col, err := d.Impl(ctx, env, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if len(col) != len(env.Halos) {
		return nil, fmt.Errorf("%s: produced %d rows for %d halos", c.Name, len(col), len(env.Halos))
	}
	return col, nil
}

// chain evaluates Then on the halos produced by Halos. Rows whose halo is
// null stay null.
func (ev *Evaluator) chain(ctx context.Context, env *Env, c expr.Chain) (ir.Column, error) {
	refs, err := ev.eval(ctx, env, c.Halos)
	if err != nil {
		return nil, err
	}

	mask := fold.NewMask(len(refs))
	targets := make([]graph.Halo, 0, len(refs))
	for i, v := range refs {
		ref, ok := v.(ir.HaloRef)
		if !ok {
			mask.Invalidate(i)
			continue
		}
		h, found, err := env.cache.halo(ctx, ev.reader, graph.HaloID(ref))
		if err != nil {
			return nil, err
		}
		if !found {
			mask.Invalidate(i)
			continue
		}
		targets = append(targets, h)
	}

	inner, err := ev.eval(ctx, env.sub(targets), c.Then)
	if err != nil {
		return nil, err
	}
	return mask.Unmask(inner), nil
}

// propertyName returns the name of a bare property node.
func propertyName(e expr.Expr) (string, bool) {
	switch n := e.(type) {
	case expr.Property:
		return n.Name, true
	case *expr.Property:
		return n.Name, true
	default:
		return "", false
	}
}

// constant returns the value of a leaf node.
func constant(e expr.Expr) (ir.Value, bool) {
	switch n := e.(type) {
	case expr.Leaf:
		return n.Value, true
	case *expr.Leaf:
		return n.Value, true
	default:
		return nil, false
	}
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/halodb/internal/expr"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/histogram"
	"github.com/roach88/halodb/internal/ingest"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/live"
	"github.com/roach88/halodb/internal/logging"
	"github.com/roach88/halodb/internal/properties"
	"github.com/roach88/halodb/internal/relation"
	"github.com/roach88/halodb/internal/store"
)

// Harness executes one scenario against a store.
type Harness struct {
	store     *store.Store
	evaluator *live.Evaluator
	writer    *properties.Writer
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the catalog
// 3. Execute steps, checking expectations
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	logger := logging.NewNop()

	st, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	catalog, err := ingest.ReadFile(scenario.Catalog)
	if err != nil {
		return nil, err
	}
	if _, err := ingest.Load(ctx, st, catalog, logger); err != nil {
		return nil, err
	}

	histograms := make(map[string]histogram.Params, len(scenario.Histograms))
	for name, h := range scenario.Histograms {
		histograms[name] = h.Params()
	}
	props, err := properties.Standard(histograms, properties.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build property registry: %w", err)
	}

	strategyOpts := []relation.Option{relation.WithLogger(logger)}
	if scenario.MaxHops > 0 {
		strategyOpts = append(strategyOpts, relation.WithMaxHops(scenario.MaxHops))
	}

	h := &Harness{
		store: st,
		evaluator: live.New(st,
			live.WithStrategy(relation.New(st, strategyOpts...)),
			live.WithProperties(props),
			live.WithLogger(logger),
		),
		writer: properties.NewWriter(st, logger),
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute steps[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep evaluates step and records it. Expectation failures go to
// result; only infrastructure failures are returned.
func (h *Harness) executeStep(ctx context.Context, seq int, step Step, result *Result) error {
	halos, err := h.resolveHalos(ctx, step)
	if err != nil {
		return err
	}

	event := TraceEvent{
		Seq:        seq,
		Kind:       "query",
		Expression: step.Expression(),
		Halos:      make([]string, len(halos)),
	}
	if step.Calc != "" {
		event.Kind = "calc"
	}
	for i, halo := range halos {
		event.Halos[i], err = h.haloPath(ctx, halo.ID)
		if err != nil {
			return err
		}
	}

	col, evalErr := h.evaluate(ctx, step.Expression(), halos)
	if evalErr != nil {
		event.Error = errorCode(evalErr)
		result.Trace = append(result.Trace, event)
		if step.Error == "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", seq, step.Expression(), evalErr))
		} else if step.Error != event.Error {
			result.AddError(fmt.Sprintf("steps[%d] %s: error %s, want %s", seq, step.Expression(), event.Error, step.Error))
		}
		return nil
	}
	if step.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got none", seq, step.Expression(), step.Error))
	}

	event.Values, err = h.renderColumn(ctx, col)
	if err != nil {
		return err
	}

	if step.Calc != "" {
		event.Written, err = h.writer.Write(ctx, step.As, halos, col)
		if err != nil {
			return err
		}
	}
	result.Trace = append(result.Trace, event)

	if step.Expect != nil {
		want, err := h.expectedColumn(ctx, step.Expect)
		if err != nil {
			return err
		}
		if len(want) != len(col) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %d rows, want %d", seq, step.Expression(), len(col), len(want)))
			return nil
		}
		for i := range want {
			if !valuesMatch(want[i], col[i]) {
				result.AddError(fmt.Sprintf("steps[%d] %s: row %d (%s) = %s, want %s",
					seq, step.Expression(), i, event.Halos[i], ir.Format(col[i]), ir.Format(want[i])))
			}
		}
	}
	return nil
}

func (h *Harness) evaluate(ctx context.Context, src string, halos []graph.Halo) (ir.Column, error) {
	e, err := h.evaluator.Compile(src)
	if err != nil {
		return nil, err
	}
	return h.evaluator.Evaluate(ctx, e, halos)
}

// errorCode returns the live.Error code, or PARSE_ERROR / EVALUATION_ERROR.
func errorCode(err error) string {
	var le *live.Error
	if errors.As(err, &le) {
		return string(le.Code)
	}
	var pe *expr.ParseError
	if errors.As(err, &pe) {
		return "PARSE_ERROR"
	}
	return "EVALUATION_ERROR"
}

func (h *Harness) resolveHalos(ctx context.Context, step Step) ([]graph.Halo, error) {
	if step.Timestep != "" {
		ts, err := h.store.LookupTimestep(ctx, step.Timestep)
		if err != nil {
			return nil, err
		}
		return h.store.HalosAt(ctx, ts.ID)
	}
	halos := make([]graph.Halo, len(step.Halos))
	for i, path := range step.Halos {
		halo, err := h.lookupHalo(ctx, path)
		if err != nil {
			return nil, err
		}
		halos[i] = halo
	}
	return halos, nil
}

func (h *Harness) lookupHalo(ctx context.Context, path string) (graph.Halo, error) {
	ts, number, err := ingest.SplitHaloPath(path)
	if err != nil {
		return graph.Halo{}, err
	}
	return h.store.LookupHalo(ctx, ts, number)
}

func (h *Harness) haloPath(ctx context.Context, id graph.HaloID) (string, error) {
	halo, err := h.store.Halo(ctx, id)
	if err != nil {
		return "", err
	}
	ts, err := h.store.Timestep(ctx, halo.Timestep)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", ts.Path(), halo.Number), nil
}

// renderColumn converts col for the trace. Halo references become their
// address so traces do not depend on row IDs.
func (h *Harness) renderColumn(ctx context.Context, col ir.Column) ([]any, error) {
	out := make([]any, len(col))
	for i, v := range col {
		if ref, ok := v.(ir.HaloRef); ok {
			path, err := h.haloPath(ctx, graph.HaloID(ref))
			if err != nil {
				return nil, err
			}
			out[i] = map[string]any{"halo": path}
			continue
		}
		out[i] = ir.ToJSON(v)
	}
	return out, nil
}

func (h *Harness) expectedColumn(ctx context.Context, values ingest.Values) (ir.Column, error) {
	col := make(ir.Column, len(values))
	for i, v := range values {
		val, err := h.expectedValue(ctx, v)
		if err != nil {
			return nil, err
		}
		col[i] = val
	}
	return col, nil
}

func (h *Harness) expectedValue(ctx context.Context, v ingest.Value) (ir.Value, error) {
	if v.HaloRef != "" {
		halo, err := h.lookupHalo(ctx, v.HaloRef)
		if err != nil {
			return nil, fmt.Errorf("expected value: %w", err)
		}
		return ir.HaloRef(halo.ID), nil
	}
	if v.Value == nil {
		return ir.Null{}, nil
	}
	return v.Value, nil
}

// valuesMatch is ir.Equal, except that an integer expectation matches an
// equal float.
func valuesMatch(want, got ir.Value) bool {
	if ir.Equal(want, got) {
		return true
	}
	wi, ok := want.(ir.Int)
	if !ok {
		return false
	}
	gf, ok := got.(ir.Float)
	return ok && float64(wi) == float64(gf)
}

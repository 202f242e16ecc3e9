package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ingest"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s over %d halos\n", event.Seq, event.Kind, event.Expression, len(event.Halos))
	}
	return buf.String()
}

// AssertionContext gives assertions access to the scenario's store.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertNullRows:
			err = assertNullRows(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalProperty:
			err = assertFinalProperty(actx, result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertNullRows checks how many null rows a step produced.
func assertNullRows(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Seq != a.Step {
			continue
		}
		nulls := 0
		for _, v := range event.Values {
			if v == nil {
				nulls++
			}
		}
		if event.Error == "" && nulls == a.Count {
			return nil
		}
		actual := fmt.Sprintf("%d null rows", nulls)
		if event.Error != "" {
			actual = "step failed with " + event.Error
		}
		return &AssertionError{
			Type:     AssertNullRows,
			Expected: fmt.Sprintf("step %d has %d null rows", a.Step, a.Count),
			Actual:   actual,
			Trace:    trace,
		}
	}
	return &AssertionError{
		Type:     AssertNullRows,
		Expected: fmt.Sprintf("step %d in trace", a.Step),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks how many steps ran an expression.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Expression == a.Query {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s run %d times", a.Query, a.Count),
		Actual:   fmt.Sprintf("run %d times", count),
		Trace:    trace,
	}
}

// assertFinalProperty reads a stored property after every step ran.
func assertFinalProperty(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	ts, number, err := ingest.SplitHaloPath(a.Halo)
	if err != nil {
		return err
	}
	halo, err := actx.Store.LookupHalo(actx.Ctx, ts, number)
	if err != nil {
		return fmt.Errorf("final_property: %w", err)
	}
	col, err := actx.Store.Properties(actx.Ctx, []graph.HaloID{halo.ID}, a.Property)
	if err != nil {
		return fmt.Errorf("final_property: %w", err)
	}

	want := a.Expect.Value
	if a.Expect.HaloRef != "" {
		ts, number, err := ingest.SplitHaloPath(a.Expect.HaloRef)
		if err != nil {
			return err
		}
		target, err := actx.Store.LookupHalo(actx.Ctx, ts, number)
		if err != nil {
			return fmt.Errorf("final_property: %w", err)
		}
		want = ir.HaloRef(target.ID)
	}
	if want == nil {
		want = ir.Null{}
	}

	if valuesMatch(want, col[0]) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalProperty,
		Expected: fmt.Sprintf("%s.%s = %s", a.Halo, a.Property, ir.Format(want)),
		Actual:   ir.Format(col[0]),
		Trace:    trace,
	}
}

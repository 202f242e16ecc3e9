package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/halodb/internal/expr"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/live"
)

// Row is one halo's result.
type Row struct {
	Halo  string `json:"halo"`
	Value any    `json:"value"`
}

// Rows prints one tab-separated row per line in text format.
type Rows []Row

func (r Rows) String() string {
	var b strings.Builder
	for i, row := range r {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%v", row.Halo, row.Value)
	}
	return b.String()
}

// haloPath returns the sim/ts/number address of id.
func haloPath(ctx context.Context, reader graph.Reader, id graph.HaloID) (string, error) {
	halo, err := reader.Halo(ctx, id)
	if err != nil {
		return "", err
	}
	ts, err := reader.Timestep(ctx, halo.Timestep)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", ts.Path(), halo.Number), nil
}

// renderValue converts v for output. Halo references become addresses.
func renderValue(ctx context.Context, reader graph.Reader, v ir.Value, text bool) (any, error) {
	if ref, ok := v.(ir.HaloRef); ok {
		return haloPath(ctx, reader, graph.HaloID(ref))
	}
	if text {
		return ir.Format(v), nil
	}
	return ir.ToJSON(v), nil
}

func renderRows(ctx context.Context, reader graph.Reader, halos []graph.Halo, col ir.Column, text bool) (Rows, error) {
	rows := make(Rows, len(halos))
	for i, halo := range halos {
		path, err := haloPath(ctx, reader, halo.ID)
		if err != nil {
			return nil, err
		}
		value, err := renderValue(ctx, reader, col[i], text)
		if err != nil {
			return nil, err
		}
		rows[i] = Row{Halo: path, Value: value}
	}
	return rows, nil
}

// expressionErrorCode returns the evaluator's code for err, PARSE_ERROR for
// syntax errors and EVALUATION_ERROR for anything else.
func expressionErrorCode(err error) string {
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

// lookupError maps a missing timestep or halo to a command error and
// anything else to a store error.
func lookupError(f *OutputFormatter, err error) error {
	if errors.Is(err, graph.ErrTimestepNotFound) || errors.Is(err, graph.ErrHaloNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	return f.Fail(ExitCommandError, ErrCodeStore, err)
}

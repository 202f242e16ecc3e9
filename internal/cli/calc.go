package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/halodb/internal/expr"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/properties"
)

// CalcOptions holds flags for the calc command.
type CalcOptions struct {
	*RootOptions
	As      string
	Workers int
}

// CalcResult reports what a calc run stored.
type CalcResult struct {
	Property   string `json:"property"`
	Expression string `json:"expression"`
	Halos      int    `json:"halos"`
	Written    int    `json:"written"`
	Workers    int    `json:"workers"`
}

func (r CalcResult) String() string {
	return fmt.Sprintf("✓ %s = %s: %d of %d halos written by %d worker(s)",
		r.Property, r.Expression, r.Written, r.Halos, r.Workers)
}

// NewCalcCommand creates the calc command.
func NewCalcCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calc <sim/ts> <expression>",
		Short: "Evaluate an expression and store the result as a property",
		Long: `Evaluate an expression over every halo of a timestep and store each
non-None result as a property. None rows delete any stored value.

With --workers N the halos are split into N disjoint slices. Each worker
has its own database connection and write lock handle, so writes from
workers (and from other processes sharing the lock backend) never
interleave.

Example:
  halodb calc --db ./halos.db sim/ts3 'Mvir / Mgas' --as mass_ratio --workers 4`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "property name to store (required)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of concurrent workers")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runCalc(opts *CalcOptions, timestep, src string, cmd *cobra.Command) error {
	if opts.Workers < 1 {
		return newFormatter(opts.RootOptions, cmd).Fail(ExitCommandError, ErrCodeGeneric,
			fmt.Errorf("--workers must be at least 1, got %d", opts.Workers))
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// Stop workers between writes on Ctrl-C.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := s.evaluator(s.store).Compile(src)
	if err != nil {
		return s.formatter.Fail(ExitFailure, expressionErrorCode(err), err)
	}
	halos, err := selectHalos(cmd, s, timestep, nil)
	if err != nil {
		return err
	}

	slices := partition(halos, opts.Workers)
	written := make([]int, len(slices))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range slices {
		g.Go(func() error {
			n, err := s.calcWorker(gctx, i, e, opts.As, part)
			written[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return s.formatter.Fail(ExitFailure, expressionErrorCode(err), err)
	}

	result := CalcResult{Property: opts.As, Expression: src, Halos: len(halos), Workers: len(slices)}
	for _, n := range written {
		result.Written += n
	}
	return s.formatter.Success(result)
}

// calcWorker evaluates e over halos on its own connection and stores the
// result under property.
func (s *session) calcWorker(ctx context.Context, worker int, e expr.Expr, property string, halos []graph.Halo) (int, error) {
	st, err := s.openStore()
	if err != nil {
		return 0, fmt.Errorf("worker %d: %w", worker, err)
	}
	defer st.Close()

	s.logger.Debug("calc worker started", "worker", worker, "halos", len(halos))
	col, err := s.evaluator(st).Evaluate(ctx, e, halos)
	if err != nil {
		return 0, fmt.Errorf("worker %d: %w", worker, err)
	}
	n, err := properties.NewWriter(st, s.logger).Write(ctx, property, halos, col)
	if err != nil {
		return 0, fmt.Errorf("worker %d: %w", worker, err)
	}
	return n, nil
}

// partition splits halos into at most n contiguous, non-empty slices of
// near-equal size.
func partition(halos []graph.Halo, n int) [][]graph.Halo {
	if n > len(halos) {
		n = len(halos)
	}
	if n == 0 {
		return nil
	}
	out := make([][]graph.Halo, 0, n)
	size, extra := len(halos)/n, len(halos)%n
	start := 0
	for i := range n {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, halos[start:end])
		start = end
	}
	return out
}

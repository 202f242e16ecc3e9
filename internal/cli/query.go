package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/graph"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Halos []int64
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sim/ts> <expression>",
		Short: "Evaluate an expression over the halos of a timestep",
		Long: `Evaluate a live-calculation expression over every halo of a timestep,
or over the halos selected with --halo. Missing data yields None rows.

Example:
  halodb query --db ./halos.db sim/ts3 'earlier(1).Mvir'
  halodb query --db ./halos.db sim/ts3 'match("other/ts9").Mvir' --halo 1 --halo 4`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.Halos, "halo", nil, "restrict to these halo numbers, in order")
	return cmd
}

func runQuery(opts *QueryOptions, timestep, src string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	ev := s.evaluator(s.store)
	e, err := ev.Compile(src)
	if err != nil {
		return s.formatter.Fail(ExitFailure, expressionErrorCode(err), err)
	}

	halos, err := selectHalos(cmd, s, timestep, opts.Halos)
	if err != nil {
		return err
	}
	s.formatter.VerboseLog("Evaluating %s over %d halos", src, len(halos))

	col, err := ev.Evaluate(ctx, e, halos)
	if err != nil {
		return s.formatter.Fail(ExitFailure, expressionErrorCode(err), err)
	}
	rows, err := renderRows(ctx, s.store, halos, col, s.formatter.Format != "json")
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return s.formatter.Success(rows)
}

// selectHalos returns the named halos of timestep, or all of them when
// numbers is empty.
func selectHalos(cmd *cobra.Command, s *session, timestep string, numbers []int64) ([]graph.Halo, error) {
	ctx := cmd.Context()
	if len(numbers) == 0 {
		ts, err := s.store.LookupTimestep(ctx, timestep)
		if err != nil {
			return nil, lookupError(s.formatter, err)
		}
		halos, err := s.store.HalosAt(ctx, ts.ID)
		if err != nil {
			return nil, lookupError(s.formatter, err)
		}
		return halos, nil
	}

	halos := make([]graph.Halo, len(numbers))
	for i, n := range numbers {
		halo, err := s.store.LookupHalo(ctx, timestep, n)
		if err != nil {
			return nil, lookupError(s.formatter, err)
		}
		halos[i] = halo
	}
	return halos, nil
}

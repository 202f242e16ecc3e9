package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/crosslink"
	"github.com/roach88/halodb/internal/graph"
)

// CrosslinkOptions holds flags for the crosslink command.
type CrosslinkOptions struct {
	*RootOptions
	Catalog string
}

// CrosslinkResult reports the links a crosslink run created.
type CrosslinkResult struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Created   int    `json:"created"`
	Existing  int    `json:"existing"`
	Disagreed int    `json:"disagreed"`
	Missing   int    `json:"missing"`
	Pairs     int    `json:"pairs,omitempty"`
}

func (r CrosslinkResult) String() string {
	s := fmt.Sprintf("✓ %s -> %s: %d created, %d existing, %d disagreed, %d missing",
		r.From, r.To, r.Created, r.Existing, r.Disagreed, r.Missing)
	if r.Pairs > 0 {
		s += fmt.Sprintf(" over %d timestep pair(s)", r.Pairs)
	}
	return s
}

func newCrosslinkResult(from, to string, res crosslink.Result) CrosslinkResult {
	return CrosslinkResult{
		From:      from,
		To:        to,
		Created:   res.Created,
		Existing:  res.Existing,
		Disagreed: res.Disagreed,
		Missing:   res.Missing,
		Pairs:     res.Pairs,
	}
}

// NewCrosslinkCommand creates the crosslink command.
func NewCrosslinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CrosslinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "crosslink <sim/ts> <sim/ts> | <sim> <sim>",
		Short: "Create sameas links between timesteps of two simulations",
		Long: `Create sameas links from the halos of the first timestep to the halos of
the second, using a bidirectional match catalog. A pair is linked only
when the forward and backward matches agree. Rerunning creates nothing
new.

The catalog is YAML with forward and backward lists of halo numbers, -1
for no match:

  forward:  [1, 0, -1]
  backward: [1, 0]

When --catalog is a directory the arguments are simulation names. Each
timestep of the first is paired with the nearest-time timestep of the
second and linked using <dir>/<from_ext>__<to_ext>.yaml.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrosslink(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "match catalog file, or a directory of per-pair catalogs (required)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runCrosslink(opts *CrosslinkOptions, from, to string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := os.Stat(opts.Catalog)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	if info.IsDir() {
		return crosslinkSimulations(s, opts.Catalog, from, to, cmd)
	}
	return crosslinkTimesteps(s, opts.Catalog, from, to, cmd)
}

func crosslinkTimesteps(s *session, catalog, fromPath, toPath string, cmd *cobra.Command) error {
	cat, err := crosslink.LoadCatalog(catalog)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		return s.formatter.Fail(ExitCommandError, ErrCodeCatalog, err)
	}

	ctx := cmd.Context()
	from, err := s.store.LookupTimestep(ctx, fromPath)
	if err != nil {
		return lookupError(s.formatter, err)
	}
	to, err := s.store.LookupTimestep(ctx, toPath)
	if err != nil {
		return lookupError(s.formatter, err)
	}

	res, err := crosslink.New(s.store, s.logger).Timesteps(ctx, from, to, cat)
	if err != nil {
		return crosslinkError(s, err)
	}
	return s.formatter.Success(newCrosslinkResult(from.Path(), to.Path(), res))
}

func crosslinkSimulations(s *session, dir, simA, simB string, cmd *cobra.Command) error {
	res, err := crosslink.New(s.store, s.logger).Simulations(cmd.Context(), simA, simB, crosslink.DirSource(dir))
	if err != nil {
		return crosslinkError(s, err)
	}
	return s.formatter.Success(newCrosslinkResult(simA, simB, res))
}

func crosslinkError(s *session, err error) error {
	switch {
	case errors.Is(err, crosslink.ErrSelfLink):
		return s.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	case errors.Is(err, graph.ErrSimulationNotFound), errors.Is(err, fs.ErrNotExist):
		return s.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	default:
		return s.formatter.Fail(ExitFailure, ErrCodeStore, err)
	}
}

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/histogram"
)

// ReassembleOptions holds flags for the reassemble command.
type ReassembleOptions struct {
	*RootOptions
	Mode string
}

// NewReassembleCommand creates the reassemble command.
func NewReassembleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReassembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reassemble <sim/ts> <halo_number> <property>",
		Short: "Rebuild a time-chunked histogram property",
		Long: `Rebuild a time-chunked property of one halo.

Modes:
  raw    the chunk stored on the halo
  place  the stored chunk at its position on the time axis
  major  chunks along the major progenitor line
  sum    chunks of every progenitor, summed per timestep

Binning comes from the histograms section of the configuration, or the
default 0.02 Gyr bins when the property is not configured.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReassemble(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(histogram.ModeMajor), "reassembly mode (raw|place|major|sum)")
	return cmd
}

func runReassemble(opts *ReassembleOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	mode, err := histogram.ParseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	number, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("invalid halo number %q", args[1]))
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	halo, err := s.store.LookupHalo(ctx, args[0], number)
	if err != nil {
		return lookupError(s.formatter, err)
	}

	property := args[2]
	params, ok := s.props.HistogramParams(property)
	if !ok {
		params = histogram.DefaultParams
	}
	s.formatter.VerboseLog("Reassembling %s of %s/%d (%s, %d bins)", property, args[0], number, mode, params.NBins)

	v, err := histogram.NewReassembler(s.store, histogram.WithLogger(s.logger)).
		Reassemble(ctx, halo, property, params, mode)
	if err != nil {
		return s.formatter.Fail(ExitFailure, "EVALUATION_ERROR", err)
	}
	value, err := renderValue(ctx, s.store, v, s.formatter.Format != "json")
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return s.formatter.Success(Rows{{Halo: fmt.Sprintf("%s/%d", args[0], number), Value: value}})
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/expr"
	"github.com/roach88/halodb/internal/live"
)

// ValidationResult holds the result of checking one expression.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Expression string   `json:"expression"`
	Calls      []string `json:"calls,omitempty"`
}

func (r ValidationResult) String() string {
	return fmt.Sprintf("✓ %s is valid", r.Expression)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check an expression without evaluating it",
		Long: `Parse an expression and check it against the function registry: unknown
functions, wrong argument counts and arguments that must be constants or
property names. No database is opened.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, src string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	e, err := live.New(nil).Compile(src)
	if err != nil {
		// Invalid expressions are validation failures (exit code 1)
		return formatter.Fail(ExitFailure, expressionErrorCode(err), err)
	}

	formatter.VerboseLog("Canonical form: %s", expr.String(e))
	return formatter.Success(ValidationResult{
		Valid:      true,
		Expression: expr.String(e),
		Calls:      expr.Calls(e),
	})
}

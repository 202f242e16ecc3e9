package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/ingest"
)

// ImportResult reports what an import wrote.
type ImportResult struct {
	Catalog    string `json:"catalog"`
	Timesteps  int    `json:"timesteps"`
	Halos      int    `json:"halos"`
	Properties int    `json:"properties"`
	Links      int    `json:"links"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("✓ Imported %s: %d timesteps, %d halos, %d properties, %d links",
		r.Catalog, r.Timesteps, r.Halos, r.Properties, r.Links)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Load a YAML halo catalog into the database",
		Long: `Load simulations, timesteps, halos, properties and links from a YAML
catalog. The whole catalog is written in one transaction under the write
lock, so a failed import leaves the database unchanged.

Example:
  halodb import --db ./halos.db ./catalog.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	s.formatter.VerboseLog("Reading catalog %s", path)
	catalog, err := ingest.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		return s.formatter.Fail(ExitCommandError, ErrCodeCatalog, err)
	}

	sum, err := ingest.Load(cmd.Context(), s.store, catalog, s.logger)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return s.formatter.Success(ImportResult{
		Catalog:    path,
		Timesteps:  sum.Timesteps,
		Halos:      sum.Halos,
		Properties: sum.Properties,
		Links:      sum.Links,
	})
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/graph"
)

func TestImport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "halos.db")
	out, err := execute(t, "import", "--db", db, filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported")
	assert.Contains(t, out, "4 timesteps, 7 halos")
	assert.Contains(t, out, "4 links")
}

func TestImportJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "halos.db")
	out, err := execute(t, "import", "--db", db, "--format", "json", filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	var res ImportResult
	decodeData(t, out, &res)
	assert.Equal(t, 4, res.Timesteps)
	assert.Equal(t, 7, res.Halos)
	assert.Equal(t, 4, res.Links)
}

func TestImportMissingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "halos.db")
	out, err := execute(t, "import", "--db", db, "/nonexistent/catalog.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestImportInvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulations: [{name: sim, timesteps: [{extension: a/b}]}]\n"), 0o644))

	out, err := execute(t, "import", "--db", filepath.Join(dir, "halos.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestQuery(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "query", "--db", db, "sim/ts3", "earlier(1).Mvir")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\t10\nsim/ts3/2\t20\n", out)

	out, err = execute(t, "query", "--db", db, "sim/ts3", "earlier(2).Mvir")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\t5\nsim/ts3/2\tNone\n", out)
}

func TestQueryJSON(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "query", "--db", db, "--format", "json", "sim/ts3", `match("sim/ts2")`)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Halo: "sim/ts3/1", Value: "sim/ts2/1"},
		{Halo: "sim/ts3/2", Value: "sim/ts2/2"},
	}, decodeRows(t, out))

	out, err = execute(t, "query", "--db", db, "--format", "json", "sim/ts1", "Mvir")
	require.NoError(t, err)
	assert.Equal(t, []Row{{Halo: "sim/ts1/1", Value: 5.0}}, decodeRows(t, out))
}

func TestQuerySelectedHalos(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "query", "--db", db, "sim/ts3", "Mvir", "--halo", "2", "--halo", "1")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/2\t21\nsim/ts3/1\t30\n", out)
}

func TestQueryErrors(t *testing.T) {
	db := importedDB(t)

	tests := []struct {
		name string
		args []string
		exit int
		code string
	}{
		{"unknown function", []string{"sim/ts3", "nosuch()"}, ExitFailure, "UNKNOWN_FUNCTION"},
		{"parse error", []string{"sim/ts3", "later(1"}, ExitFailure, "PARSE_ERROR"},
		{"argument type", []string{"sim/ts3", "later(1.5)"}, ExitFailure, "ARGUMENT_TYPE"},
		{"missing timestep", []string{"sim/ts9", "Mvir"}, ExitCommandError, ErrCodeNotFound},
		{"missing halo", []string{"sim/ts3", "Mvir", "--halo", "7"}, ExitCommandError, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", "--db", db, "--format", "json"}, tt.args...)
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.Equal(t, tt.code, decodeError(t, out).Code)
		})
	}
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "later( 1 ).Mvir+2")
	require.NoError(t, err)
	assert.Equal(t, "✓ (later(1).Mvir + 2) is valid\n", out)

	out, err = execute(t, "validate", "--format", "json", `link(BH, BH_mass, "max")`)
	require.NoError(t, err)
	var res ValidationResult
	decodeData(t, out, &res)
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"link"}, res.Calls)
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		src  string
		code string
	}{
		{"later(", "PARSE_ERROR"},
		{"frobnicate(1)", "UNKNOWN_FUNCTION"},
		{"later(1, 2)", "ARITY_MISMATCH"},
		{`reassemble(SFR, 3)`, "ARGUMENT_TYPE"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := execute(t, "validate", tt.src)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, fmt.Sprintf("Error [%s]", tt.code))
		})
	}
}

func TestReassemble(t *testing.T) {
	db := importedDB(t)
	cfg := filepath.Join("testdata", "histograms.cue")

	out, err := execute(t, "reassemble", "--db", db, "--config", cfg, "sim/ts3", "1", "SFR_histogram")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\t[1 1 2]\n", out)

	out, err = execute(t, "reassemble", "--db", db, "--config", cfg, "--mode", "raw", "sim/ts3", "1", "SFR_histogram")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\t[2]\n", out)

	out, err = execute(t, "reassemble", "--db", db, "--config", cfg, "sim/ts3", "2", "SFR_histogram")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/2\tNone\n", out)
}

func TestReassembleErrors(t *testing.T) {
	db := importedDB(t)

	_, err := execute(t, "reassemble", "--db", db, "--mode", "stack", "sim/ts3", "1", "SFR_histogram")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "reassemble", "--db", db, "sim/ts3", "one", "SFR_histogram")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid halo number "one"`)

	_, err = execute(t, "reassemble", "--db", db, "sim/ts3", "9", "SFR_histogram")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrHaloNotFound)
}

func TestCalc(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "calc", "--db", db, "--format", "json", "sim/ts3", "Mvir * 2", "--as", "Mvir2", "--workers", "2")
	require.NoError(t, err)
	var res CalcResult
	decodeData(t, out, &res)
	assert.Equal(t, CalcResult{Property: "Mvir2", Expression: "Mvir * 2", Halos: 2, Written: 2, Workers: 2}, res)

	out, err = execute(t, "query", "--db", db, "sim/ts3", "Mvir2")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\t60\nsim/ts3/2\t42\n", out)
}

func TestCalcNullRowsNotWritten(t *testing.T) {
	db := importedDB(t)

	out, err := execute(t, "calc", "--db", db, "sim/ts3", "earlier(2).Mvir", "--as", "Mvir_2ago", "--workers", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 halos written by 2 worker(s)")

	out, err = execute(t, "query", "--db", db, "sim/ts3", "has_property(Mvir_2ago)")
	require.NoError(t, err)
	assert.Equal(t, "sim/ts3/1\tTrue\nsim/ts3/2\tFalse\n", out)
}

func TestCalcErrors(t *testing.T) {
	db := importedDB(t)

	_, err := execute(t, "calc", "--db", db, "sim/ts3", "Mvir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = execute(t, "calc", "--db", db, "sim/ts3", "Mvir", "--as", "x", "--workers", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "calc", "--db", db, "sim/ts3", "nosuch()", "--as", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCrosslink(t *testing.T) {
	db := importedDB(t)
	match := filepath.Join("testdata", "match.yaml")

	out, err := execute(t, "crosslink", "--db", db, "--format", "json", "sim/ts2", "other/ts1", "--catalog", match)
	require.NoError(t, err)
	var res CrosslinkResult
	decodeData(t, out, &res)
	assert.Equal(t, CrosslinkResult{From: "sim/ts2", To: "other/ts1", Created: 2}, res)

	out, err = execute(t, "crosslink", "--db", db, "sim/ts2", "other/ts1", "--catalog", match)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 2 existing")

	out, err = execute(t, "query", "--db", db, "sim/ts2", `match("other/ts1").Mvir`)
	require.NoError(t, err)
	assert.Equal(t, "sim/ts2/1\t11\nsim/ts2/2\t19\n", out)
}

func TestCrosslink_Simulations(t *testing.T) {
	db := importedDB(t)
	dir := t.TempDir()

	_, err := execute(t, "crosslink", "--db", db, "other", "sim", "--catalog", dir)
	require.Error(t, err, "no catalog for other/ts1 -> sim/ts2 yet")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	match := []byte("forward: [-1, 2, 1]\nbackward: [-1, 2, 1]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ts1__ts2.yaml"), match, 0o644))

	out, err := execute(t, "crosslink", "--db", db, "--format", "json", "other", "sim", "--catalog", dir)
	require.NoError(t, err)
	var res CrosslinkResult
	decodeData(t, out, &res)
	assert.Equal(t, CrosslinkResult{From: "other", To: "sim", Created: 2, Pairs: 1}, res)

	out, err = execute(t, "query", "--db", db, "other/ts1", `match("sim/ts2").Mvir`)
	require.NoError(t, err)
	assert.Equal(t, "other/ts1/1\t20\nother/ts1/2\t10\n", out)

	_, err = execute(t, "crosslink", "--db", db, "other", "nosuch", "--catalog", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCrosslinkErrors(t *testing.T) {
	db := importedDB(t)
	match := filepath.Join("testdata", "match.yaml")

	_, err := execute(t, "crosslink", "--db", db, "sim/ts2", "other/ts1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = execute(t, "crosslink", "--db", db, "sim/ts2", "sim/ts2", "--catalog", match)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "crosslink", "--db", db, "sim/ts2", "other/ts1", "--catalog", "/nonexistent.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

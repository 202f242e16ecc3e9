package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/halodb/internal/ir"
)

func loadMergerTree(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "merger_tree.yaml"))
	require.NoError(t, err)
	return s
}

func TestRunWithGolden_MergerTree(t *testing.T) {
	result, err := RunWithGolden(t, loadMergerTree(t))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := loadMergerTree(t)
	s.Steps = []Step{{
		Query:  "earlier(1).Mvir",
		Halos:  []string{"sim/ts3/1"},
		Expect: loadValues(t, "[11.0]"),
	}}
	s.Assertions = []Assertion{{Type: AssertTraceCount, Query: "earlier(1).Mvir", Count: 2}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "row 0 (sim/ts3/1) = 10, want 11")
	assert.Contains(t, result.Errors[1], "Assertion failed: trace_count")
}

func TestRun_ErrorExpectations(t *testing.T) {
	s := loadMergerTree(t)
	s.Assertions = nil
	s.Steps = []Step{
		{Query: "nosuch()", Timestep: "sim/ts1", Error: "UNKNOWN_FUNCTION"},
		{Query: "later(1", Timestep: "sim/ts1", Error: "PARSE_ERROR"},
		{Query: "later(1)", Timestep: "sim/ts1", Error: "ARGUMENT_TYPE"},
		{Query: "later(1.5)", Timestep: "sim/ts1"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, "UNKNOWN_FUNCTION", result.Trace[0].Error)
	assert.Equal(t, "PARSE_ERROR", result.Trace[1].Error)
	assert.Empty(t, result.Trace[2].Error)

	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected error ARGUMENT_TYPE, got none")
	assert.Contains(t, result.Errors[1], "unexpected error")
}

func TestRun_MissingHalo(t *testing.T) {
	s := loadMergerTree(t)
	s.Steps = []Step{{Query: "Mvir", Halos: []string{"sim/ts3/9"}}}
	s.Assertions = nil

	_, err := Run(s)
	assert.Error(t, err)
}

func TestRun_HopCeiling(t *testing.T) {
	s := loadMergerTree(t)
	s.MaxHops = 1
	s.Assertions = []Assertion{{Type: AssertNullRows, Step: 0, Count: 2}}
	s.Steps = []Step{{Query: "earlier(2).Mvir", Halos: []string{"sim/ts3/1", "sim/ts3/2"}}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	catalog, err := os.ReadFile(filepath.Join("testdata", "catalogs", "tree.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree.yaml"), catalog, 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", "description: d\ncatalog: tree.yaml\nsteps: [{query: Mvir, timestep: sim/ts1}]\n", "name is required"},
		{"no description", "name: n\ncatalog: tree.yaml\nsteps: [{query: Mvir, timestep: sim/ts1}]\n", "description is required"},
		{"missing catalog", "name: n\ndescription: d\ncatalog: nope.yaml\nsteps: [{query: Mvir, timestep: sim/ts1}]\n", "catalog file not found"},
		{"no steps", "name: n\ndescription: d\ncatalog: tree.yaml\n", "steps list is required"},
		{"query and calc", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{query: Mvir, calc: Mvir, as: x, timestep: sim/ts1}]\n", "exactly one of query and calc"},
		{"calc without as", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{calc: Mvir, timestep: sim/ts1}]\n", "as property name"},
		{"no halos", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{query: Mvir}]\n", "exactly one of halos and timestep"},
		{"expect length", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{query: Mvir, halos: [sim/ts1/1], expect: [1, 2]}]\n", "2 expected values for 1 halos"},
		{"unknown field", "name: n\ndescription: d\ncatalog: tree.yaml\nstep: []\n", "failed to parse YAML"},
		{"bad assertion", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{query: Mvir, timestep: sim/ts1}]\nassertions: [{type: final_state}]\n", "unknown assertion type"},
		{"step out of range", "name: n\ndescription: d\ncatalog: tree.yaml\nsteps: [{query: Mvir, timestep: sim/ts1}]\nassertions: [{type: null_rows, step: 3}]\n", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_NullExpectations(t *testing.T) {
	body := "name: n\ndescription: d\ncatalog: tree.yaml\n" +
		"steps: [{query: earlier(2).Mvir, halos: [sim/ts3/1, sim/ts3/2], expect: [null, 5.0]}]\n"
	s, err := LoadScenario(writeScenario(t, body))
	require.NoError(t, err)
	require.Len(t, s.Steps[0].Expect, 2)
	assert.Equal(t, ir.Null{}, s.Steps[0].Expect[0].Value)
	assert.Equal(t, ir.Float(5), s.Steps[0].Expect[1].Value)
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/halodb/internal/config"
	"github.com/roach88/halodb/internal/ingest"
)

// Scenario is a catalog plus the steps and assertions run against it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the path of an ingest catalog, relative to the scenario
	// file once loaded.
	Catalog string `yaml:"catalog"`

	// Histograms declares time-chunked properties and their binning.
	Histograms map[string]config.Histogram `yaml:"histograms,omitempty"`

	// MaxHops overrides the traversal hop ceiling when positive.
	MaxHops int `yaml:"max_hops,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step evaluates one expression over a set of halos. Query steps compare
// the result with Expect or Error; calc steps store it as property As.
type Step struct {
	Query string `yaml:"query,omitempty"`
	Calc  string `yaml:"calc,omitempty"`
	As    string `yaml:"as,omitempty"`

	// Halos addresses halos as simulation/extension/number. Timestep
	// selects every halo of a timestep instead.
	Halos    []string `yaml:"halos,omitempty"`
	Timestep string   `yaml:"timestep,omitempty"`

	// Expect lists one value per halo.
	Expect ingest.Values `yaml:"expect,omitempty"`

	// Error is the expected evaluation error code, such as ARGUMENT_TYPE.
	Error string `yaml:"error,omitempty"`
}

// Expression returns the query or calc expression.
func (s Step) Expression() string {
	if s.Calc != "" {
		return s.Calc
	}
	return s.Query
}

// Assertion validates the final result or store.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Step indexes Steps (null_rows).
	Step int `yaml:"step,omitempty"`

	// Query is the expression counted (trace_count).
	Query string `yaml:"query,omitempty"`

	// Count is the expected number (null_rows, trace_count).
	Count int `yaml:"count,omitempty"`

	// Halo and Property select a stored value (final_property).
	Halo     string `yaml:"halo,omitempty"`
	Property string `yaml:"property,omitempty"`

	// Expect is the expected stored value (final_property).
	Expect *ingest.Value `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertNullRows      = "null_rows"
	AssertFinalProperty = "final_property"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface. The catalog path is resolved against the
// scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); err != nil {
		return fmt.Errorf("catalog file not found: %s", s.Catalog)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if (step.Query == "") == (step.Calc == "") {
			return fmt.Errorf("steps[%d]: exactly one of query and calc is required", i)
		}
		if step.Calc != "" && step.As == "" {
			return fmt.Errorf("steps[%d]: calc needs an as property name", i)
		}
		if (len(step.Halos) == 0) == (step.Timestep == "") {
			return fmt.Errorf("steps[%d]: exactly one of halos and timestep is required", i)
		}
		if step.Expect != nil && step.Error != "" {
			return fmt.Errorf("steps[%d]: expect and error are exclusive", i)
		}
		if step.Expect != nil && len(step.Halos) > 0 && len(step.Expect) != len(step.Halos) {
			return fmt.Errorf("steps[%d]: %d expected values for %d halos", i, len(step.Expect), len(step.Halos))
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertNullRows:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
	case AssertFinalProperty:
		if a.Halo == "" || a.Property == "" || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: halo, property and expect are required for final_property", index)
		}
	case AssertTraceCount:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

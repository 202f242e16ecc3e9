package ingest

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// Catalog is the YAML form of a halo catalog.
type Catalog struct {
	Simulations []Simulation `yaml:"simulations"`
	Links       []Link       `yaml:"links"`
}

// Simulation is one run and its snapshots.
type Simulation struct {
	Name      string     `yaml:"name"`
	Timesteps []Timestep `yaml:"timesteps"`
}

// Timestep is one snapshot.
type Timestep struct {
	Extension string  `yaml:"extension"`
	TimeGyr   float64 `yaml:"time_gyr"`
	Redshift  float64 `yaml:"redshift"`
	Halos     []Halo  `yaml:"halos"`
}

// Halo is one catalogued halo and its stored properties.
type Halo struct {
	Number     int64      `yaml:"number"`
	Properties Properties `yaml:"properties"`
}

// Link joins two halos given by address.
type Link struct {
	From     string   `yaml:"from"`
	To       string   `yaml:"to"`
	Relation string   `yaml:"relation"`
	Weight   *float64 `yaml:"weight"`
}

// Value is a property value as written in YAML.
//
// Scalars map to Int, Float, Bool or String; ".nan" is a NaN float; a
// sequence of numbers is an Array; a scalar tagged !halo is a reference to
// the halo at that address, resolved at load time.
type Value struct {
	ir.Value
	// HaloRef is the address of a !halo value.
	HaloRef string
}

// Values is a YAML list of property values. A null element is kept as
// ir.Null.
type Values []Value

// UnmarshalYAML implements yaml.Unmarshaler.
func (vs *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list of values", node.Line)
	}
	out := make(Values, len(node.Content))
	for i, item := range node.Content {
		if err := out[i].UnmarshalYAML(item); err != nil {
			return err
		}
	}
	*vs = out
	return nil
}

// Properties maps property names to values. A null value is kept as
// ir.Null.
type Properties map[string]Value

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}
	out := make(Properties, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("line %d: property name: %w", node.Content[i].Line, err)
		}
		var v Value
		if err := v.UnmarshalYAML(node.Content[i+1]); err != nil {
			return err
		}
		out[name] = v
	}
	*p = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The decoder skips custom
// unmarshalers for null nodes, so Values and Properties call this directly
// to keep them.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return v.scalar(node)
	case yaml.SequenceNode:
		arr := make(ir.Array, len(node.Content))
		for i, item := range node.Content {
			var f float64
			if err := item.Decode(&f); err != nil {
				return fmt.Errorf("line %d: array element %d: %w", item.Line, i, err)
			}
			arr[i] = f
		}
		v.Value = arr
		return nil
	default:
		return fmt.Errorf("line %d: property values must be scalars or number lists", node.Line)
	}
}

func (v *Value) scalar(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!halo":
		v.HaloRef = node.Value
		return nil
	case "!!null":
		v.Value = ir.Null{}
		return nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		v.Value = ir.Bool(b)
		return nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		v.Value = ir.Int(i)
		return nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		v.Value = ir.Float(f)
		return nil
	default:
		v.Value = ir.String(node.Value)
		return nil
	}
}

// Parse decodes a catalog and checks it for structural errors.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadFile reads and parses a catalog file.
func ReadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate reports every structural problem at once.
func (c *Catalog) Validate() error {
	var errs []string
	for i, sim := range c.Simulations {
		if sim.Name == "" {
			errs = append(errs, fmt.Sprintf("simulations[%d]: name is required", i))
		}
		seen := make(map[string]bool)
		for j, ts := range sim.Timesteps {
			where := fmt.Sprintf("%s timesteps[%d]", sim.Name, j)
			if ts.Extension == "" || strings.Contains(ts.Extension, "/") {
				errs = append(errs, where+": extension must be non-empty and contain no slash")
			}
			if seen[ts.Extension] {
				errs = append(errs, fmt.Sprintf("%s: duplicate extension %q", where, ts.Extension))
			}
			seen[ts.Extension] = true
			if math.IsNaN(ts.TimeGyr) {
				errs = append(errs, where+": time_gyr is NaN")
			}
		}
	}
	for i, l := range c.Links {
		where := fmt.Sprintf("links[%d]", i)
		if _, _, err := SplitHaloPath(l.From); err != nil {
			errs = append(errs, fmt.Sprintf("%s: from: %v", where, err))
		}
		if _, _, err := SplitHaloPath(l.To); err != nil {
			errs = append(errs, fmt.Sprintf("%s: to: %v", where, err))
		}
		if l.Relation == "" {
			errs = append(errs, where+": relation is required")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// SplitHaloPath splits "simulation/extension/number".
func SplitHaloPath(path string) (timestep string, number int64, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid halo path %q: want simulation/extension/number", path)
	}
	number, err = strconv.ParseInt(path[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid halo path %q: bad halo number", path)
	}
	if _, _, err := graph.SplitPath(path[:i]); err != nil {
		return "", 0, fmt.Errorf("invalid halo path %q: %w", path, err)
	}
	return path[:i], number, nil
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/halodb/internal/ir"
)

// Sentinel errors returned by Reader implementations.
var (
	ErrHaloNotFound       = errors.New("halo not found")
	ErrTimestepNotFound   = errors.New("timestep not found")
	ErrSimulationNotFound = errors.New("simulation not found")
	ErrSameTimestepLink   = errors.New("link source and target share a timestep")
)

// HaloID identifies a halo in a catalog.
type HaloID int64

// TimestepID identifies a timestep in a catalog.
type TimestepID int64

// Halo is a catalogued structure at one timestep.
// Identity is (simulation, timestep, Number); ID is the catalog key.
type Halo struct {
	ID       HaloID
	Timestep TimestepID
	Number   int64
}

// Timestep is one snapshot of a simulation.
type Timestep struct {
	ID         TimestepID
	Simulation string
	Extension  string
	TimeGyr    float64
	Redshift   float64
}

// Path returns "simulation/extension", the form used to address a timestep.
func (t Timestep) Path() string {
	return t.Simulation + "/" + t.Extension
}

// SplitPath splits "simulation/extension" at the last slash.
// Simulation names may themselves contain slashes.
func SplitPath(path string) (simulation, extension string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("invalid timestep path %q: want simulation/extension", path)
	}
	return path[:i], path[i+1:], nil
}

// RelationKind names a link type.
type RelationKind string

// Relation kinds understood by traversal. Other names are valid link labels
// (for example "BH") that can be read but not traversed.
const (
	Progenitor RelationKind = "progenitor"
	Descendant RelationKind = "descendant"
	SameAs     RelationKind = "sameas"
)

// Traversable reports whether k is one of the built-in relation kinds.
func (k RelationKind) Traversable() bool {
	switch k {
	case Progenitor, Descendant, SameAs:
		return true
	default:
		return false
	}
}

// Reverse returns the kind that describes the same edge read backwards.
func (k RelationKind) Reverse() RelationKind {
	switch k {
	case Progenitor:
		return Descendant
	case Descendant:
		return Progenitor
	default:
		return k
	}
}

// Direction selects outgoing or incoming links of a halo.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Link is a directed edge between halos in different timesteps.
// Weight ranks competing links; higher is stronger.
type Link struct {
	Source   HaloID
	Target   HaloID
	Relation RelationKind
	Weight   float64
}

// Other returns the end of l that is not h.
func (l Link) Other(h HaloID) HaloID {
	if l.Source == h {
		return l.Target
	}
	return l.Source
}

// Reader is the read boundary of a halo catalog.
//
// Properties returns one value per requested halo, in order, with ir.Null
// where the property is absent. Links with an empty kind returns links of
// every kind.
type Reader interface {
	Halo(ctx context.Context, id HaloID) (Halo, error)
	Timestep(ctx context.Context, id TimestepID) (Timestep, error)
	LookupTimestep(ctx context.Context, path string) (Timestep, error)
	Sequence(ctx context.Context, simulation string) (Sequence, error)
	Links(ctx context.Context, halo HaloID, kind RelationKind, dir Direction) ([]Link, error)
	Properties(ctx context.Context, halos []HaloID, name string) (ir.Column, error)
}

// Catalog extends Reader with enumeration used by tooling.
type Catalog interface {
	Reader
	HalosAt(ctx context.Context, timestep TimestepID) ([]Halo, error)
	LookupHalo(ctx context.Context, path string, number int64) (Halo, error)
}

// IDs returns the IDs of halos, in order.
func IDs(halos []Halo) []HaloID {
	ids := make([]HaloID, len(halos))
	for i, h := range halos {
		ids[i] = h.ID
	}
	return ids
}

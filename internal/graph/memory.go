package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/halodb/internal/ir"
)

// Memory is a thread-safe in-memory catalog.
//
// IDs are assigned sequentially from 1 in insertion order, so catalogs built
// by the same sequence of calls are identical.
type Memory struct {
	// AllowIllegalLinks disables the same-timestep check in AddLink.
	// Only traversal robustness tests should set it.
	AllowIllegalLinks bool

	mu         sync.RWMutex
	timesteps  map[TimestepID]Timestep
	paths      map[string]TimestepID
	halos      map[HaloID]Halo
	byNumber   map[TimestepID]map[int64]HaloID
	order      map[TimestepID][]HaloID
	outgoing   map[HaloID][]Link
	incoming   map[HaloID][]Link
	properties map[HaloID]map[string]ir.Value
	nextTS     TimestepID
	nextHalo   HaloID
}

var _ Catalog = (*Memory)(nil)

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		timesteps:  make(map[TimestepID]Timestep),
		paths:      make(map[string]TimestepID),
		halos:      make(map[HaloID]Halo),
		byNumber:   make(map[TimestepID]map[int64]HaloID),
		order:      make(map[TimestepID][]HaloID),
		outgoing:   make(map[HaloID][]Link),
		incoming:   make(map[HaloID][]Link),
		properties: make(map[HaloID]map[string]ir.Value),
	}
}

// AddTimestep adds a timestep to simulation. The path must be unused.
func (m *Memory) AddTimestep(simulation, extension string, timeGyr, redshift float64) (Timestep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := Timestep{
		Simulation: simulation,
		Extension:  extension,
		TimeGyr:    timeGyr,
		Redshift:   redshift,
	}
	if _, ok := m.paths[ts.Path()]; ok {
		return Timestep{}, fmt.Errorf("timestep %s already exists", ts.Path())
	}
	m.nextTS++
	ts.ID = m.nextTS
	m.timesteps[ts.ID] = ts
	m.paths[ts.Path()] = ts.ID
	m.byNumber[ts.ID] = make(map[int64]HaloID)
	return ts, nil
}

// AddHalo adds halo number to a timestep. Numbers are unique per timestep.
func (m *Memory) AddHalo(timestep TimestepID, number int64) (Halo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	numbers, ok := m.byNumber[timestep]
	if !ok {
		return Halo{}, fmt.Errorf("timestep %d: %w", timestep, ErrTimestepNotFound)
	}
	if _, dup := numbers[number]; dup {
		return Halo{}, fmt.Errorf("halo %d already exists in timestep %d", number, timestep)
	}
	m.nextHalo++
	h := Halo{ID: m.nextHalo, Timestep: timestep, Number: number}
	m.halos[h.ID] = h
	numbers[number] = h.ID
	m.order[timestep] = append(m.order[timestep], h.ID)
	return h, nil
}

// SetProperty stores a property value, replacing any previous value.
func (m *Memory) SetProperty(halo HaloID, name string, v ir.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.halos[halo]; !ok {
		return fmt.Errorf("halo %d: %w", halo, ErrHaloNotFound)
	}
	props := m.properties[halo]
	if props == nil {
		props = make(map[string]ir.Value)
		m.properties[halo] = props
	}
	props[name] = v
	return nil
}

// AddLink adds a directed link. Both halos must exist and, unless
// AllowIllegalLinks is set, belong to different timesteps.
func (m *Memory) AddLink(l Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.halos[l.Source]
	if !ok {
		return fmt.Errorf("link source %d: %w", l.Source, ErrHaloNotFound)
	}
	dst, ok := m.halos[l.Target]
	if !ok {
		return fmt.Errorf("link target %d: %w", l.Target, ErrHaloNotFound)
	}
	if src.Timestep == dst.Timestep && !m.AllowIllegalLinks {
		return fmt.Errorf("link %d -> %d: %w", l.Source, l.Target, ErrSameTimestepLink)
	}
	m.outgoing[l.Source] = append(m.outgoing[l.Source], l)
	m.incoming[l.Target] = append(m.incoming[l.Target], l)
	return nil
}

// Halo implements Reader.
func (m *Memory) Halo(_ context.Context, id HaloID) (Halo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.halos[id]
	if !ok {
		return Halo{}, fmt.Errorf("halo %d: %w", id, ErrHaloNotFound)
	}
	return h, nil
}

// Timestep implements Reader.
func (m *Memory) Timestep(_ context.Context, id TimestepID) (Timestep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ts, ok := m.timesteps[id]
	if !ok {
		return Timestep{}, fmt.Errorf("timestep %d: %w", id, ErrTimestepNotFound)
	}
	return ts, nil
}

// LookupTimestep implements Reader.
func (m *Memory) LookupTimestep(_ context.Context, path string) (Timestep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.paths[path]
	if !ok {
		return Timestep{}, fmt.Errorf("timestep %s: %w", path, ErrTimestepNotFound)
	}
	return m.timesteps[id], nil
}

// Sequence implements Reader.
func (m *Memory) Sequence(_ context.Context, simulation string) (Sequence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var steps []Timestep
	for _, ts := range m.timesteps {
		if ts.Simulation == simulation {
			steps = append(steps, ts)
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("simulation %s: %w", simulation, ErrSimulationNotFound)
	}
	// Map iteration is random; pin ties before the stable time sort.
	sort.Slice(steps, func(i, j int) bool { return steps[i].ID < steps[j].ID })
	return NewSequence(steps), nil
}

// Links implements Reader.
func (m *Memory) Links(_ context.Context, halo HaloID, kind RelationKind, dir Direction) ([]Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.outgoing[halo]
	if dir == Incoming {
		src = m.incoming[halo]
	}
	out := make([]Link, 0, len(src))
	for _, l := range src {
		if kind == "" || l.Relation == kind {
			out = append(out, l)
		}
	}
	return out, nil
}

// Properties implements Reader.
func (m *Memory) Properties(_ context.Context, halos []HaloID, name string) (ir.Column, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col := ir.NullColumn(len(halos))
	for i, id := range halos {
		if v, ok := m.properties[id][name]; ok {
			col[i] = v
		}
	}
	return col, nil
}

// HalosAt implements Catalog. Halos are returned in insertion order.
func (m *Memory) HalosAt(_ context.Context, timestep TimestepID) ([]Halo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.timesteps[timestep]; !ok {
		return nil, fmt.Errorf("timestep %d: %w", timestep, ErrTimestepNotFound)
	}
	ids := m.order[timestep]
	out := make([]Halo, len(ids))
	for i, id := range ids {
		out[i] = m.halos[id]
	}
	return out, nil
}

// LookupHalo implements Catalog.
func (m *Memory) LookupHalo(ctx context.Context, path string, number int64) (Halo, error) {
	ts, err := m.LookupTimestep(ctx, path)
	if err != nil {
		return Halo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNumber[ts.ID][number]
	if !ok {
		return Halo{}, fmt.Errorf("halo %s/%d: %w", path, number, ErrHaloNotFound)
	}
	return m.halos[id], nil
}

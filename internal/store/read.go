package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/querysql"
)

var _ graph.Catalog = (*Store)(nil)

const timestepColumns = `t.id, s.basename, t.extension, t.time_gyr, t.redshift`

const timestepFrom = `timesteps t JOIN simulations s ON t.simulation_id = s.id`

// Halo implements graph.Reader.
func (s *Store) Halo(ctx context.Context, id graph.HaloID) (graph.Halo, error) {
	h := graph.Halo{ID: id}
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT timestep_id, halo_number FROM halos WHERE id = ?`, int64(id),
	).Scan(&h.Timestep, &h.Number)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Halo{}, fmt.Errorf("halo %d: %w", id, graph.ErrHaloNotFound)
	}
	if err != nil {
		return graph.Halo{}, fmt.Errorf("read halo %d: %w", id, err)
	}
	return h, nil
}

// Timestep implements graph.Reader.
func (s *Store) Timestep(ctx context.Context, id graph.TimestepID) (graph.Timestep, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+timestepColumns+` FROM `+timestepFrom+` WHERE t.id = ?`, int64(id))
	ts, err := scanTimestep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Timestep{}, fmt.Errorf("timestep %d: %w", id, graph.ErrTimestepNotFound)
	}
	if err != nil {
		return graph.Timestep{}, fmt.Errorf("read timestep %d: %w", id, err)
	}
	return ts, nil
}

// LookupTimestep implements graph.Reader.
func (s *Store) LookupTimestep(ctx context.Context, path string) (graph.Timestep, error) {
	simulation, extension, err := graph.SplitPath(path)
	if err != nil {
		return graph.Timestep{}, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+timestepColumns+` FROM `+timestepFrom+` WHERE s.basename = ? AND t.extension = ?`,
		simulation, extension)
	ts, err := scanTimestep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Timestep{}, fmt.Errorf("timestep %s: %w", path, graph.ErrTimestepNotFound)
	}
	if err != nil {
		return graph.Timestep{}, fmt.Errorf("read timestep %s: %w", path, err)
	}
	return ts, nil
}

// Sequence implements graph.Reader.
func (s *Store) Sequence(ctx context.Context, simulation string) (graph.Sequence, error) {
	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{timestepColumns},
		From:    timestepFrom,
		Filter:  querysql.Equals{Field: "s.basename", Value: simulation},
		OrderBy: []string{"t.time_gyr ASC", "t.id ASC"},
	})
	if err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query timesteps: %w", err)
	}
	defer rows.Close()

	var steps []graph.Timestep
	for rows.Next() {
		ts, err := scanTimestep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timestep: %w", err)
		}
		steps = append(steps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timesteps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("simulation %s: %w", simulation, graph.ErrSimulationNotFound)
	}
	return graph.NewSequence(steps), nil
}

// Links implements graph.Reader. Links are returned in insertion order.
func (s *Store) Links(ctx context.Context, halo graph.HaloID, kind graph.RelationKind, dir graph.Direction) ([]graph.Link, error) {
	field := "l.halo_from_id"
	if dir == graph.Incoming {
		field = "l.halo_to_id"
	}
	filter := querysql.And{Predicates: []querysql.Predicate{
		querysql.Equals{Field: field, Value: int64(halo)},
	}}
	if kind != "" {
		filter.Predicates = append(filter.Predicates, querysql.Equals{Field: "d.text", Value: string(kind)})
	}

	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{"l.halo_from_id", "l.halo_to_id", "d.text", "l.weight"},
		From:    "links l JOIN dictionary d ON l.relation_id = d.id",
		Filter:  filter,
		OrderBy: []string{"l.id ASC"},
	})
	if err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []graph.Link{}
	for rows.Next() {
		var (
			l      graph.Link
			rel    string
			weight sql.NullFloat64
		)
		if err := rows.Scan(&l.Source, &l.Target, &rel, &weight); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		l.Relation = graph.RelationKind(rel)
		l.Weight = unmarshalWeight(weight)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// Properties implements graph.Reader. Lookups are batched to stay under
// SQLite's parameter limit.
func (s *Store) Properties(ctx context.Context, halos []graph.HaloID, name string) (ir.Column, error) {
	col := ir.NullColumn(len(halos))
	nameID, ok, err := s.lookupDictionary(ctx, name)
	if err != nil || !ok {
		return col, err
	}

	positions := make(map[graph.HaloID][]int, len(halos))
	for i, h := range halos {
		positions[h] = append(positions[h], i)
	}
	unique := make([]any, 0, len(positions))
	seen := make(map[graph.HaloID]bool, len(positions))
	for _, h := range halos {
		if !seen[h] {
			seen[h] = true
			unique = append(unique, int64(h))
		}
	}

	for _, b := range querysql.Batches(len(unique), querysql.DefaultBatchSize) {
		query, params, err := querysql.Compile(querysql.Select{
			Columns: []string{"halo_id", "kind", "data_real", "data_int", "data_text", "data_blob"},
			From:    "properties",
			Filter: querysql.And{Predicates: []querysql.Predicate{
				querysql.Equals{Field: "name_id", Value: nameID},
				querysql.In{Field: "halo_id", Values: unique[b[0]:b[1]]},
			}},
			OrderBy: []string{"halo_id ASC"},
		})
		if err != nil {
			return nil, err
		}
		if err := s.scanProperties(ctx, query, params, positions, col); err != nil {
			return nil, fmt.Errorf("read property %s: %w", name, err)
		}
	}
	return col, nil
}

func (s *Store) scanProperties(ctx context.Context, query string, params []any, positions map[graph.HaloID][]int, col ir.Column) error {
	rows, err := s.conn(ctx).QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			halo graph.HaloID
			sv   storedValue
		)
		if err := rows.Scan(&halo, &sv.kind, &sv.num, &sv.integer, &sv.text, &sv.blob); err != nil {
			return err
		}
		v, err := unmarshalValue(sv)
		if err != nil {
			return fmt.Errorf("halo %d: %w", halo, err)
		}
		for _, i := range positions[halo] {
			col[i] = v
		}
	}
	return rows.Err()
}

// HalosAt implements graph.Catalog. Halos are ordered by number.
func (s *Store) HalosAt(ctx context.Context, timestep graph.TimestepID) ([]graph.Halo, error) {
	if _, err := s.Timestep(ctx, timestep); err != nil {
		return nil, err
	}
	query, params, err := querysql.Compile(querysql.Select{
		Columns: []string{"id", "timestep_id", "halo_number"},
		From:    "halos",
		Filter:  querysql.Equals{Field: "timestep_id", Value: int64(timestep)},
		OrderBy: []string{"halo_number ASC", "id ASC"},
	})
	if err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query halos: %w", err)
	}
	defer rows.Close()

	halos := []graph.Halo{}
	for rows.Next() {
		var h graph.Halo
		if err := rows.Scan(&h.ID, &h.Timestep, &h.Number); err != nil {
			return nil, fmt.Errorf("scan halo: %w", err)
		}
		halos = append(halos, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate halos: %w", err)
	}
	return halos, nil
}

// LookupHalo implements graph.Catalog.
func (s *Store) LookupHalo(ctx context.Context, path string, number int64) (graph.Halo, error) {
	ts, err := s.LookupTimestep(ctx, path)
	if err != nil {
		return graph.Halo{}, err
	}
	h := graph.Halo{Timestep: ts.ID, Number: number}
	err = s.conn(ctx).QueryRowContext(ctx,
		`SELECT id FROM halos WHERE timestep_id = ? AND halo_number = ?`, int64(ts.ID), number,
	).Scan(&h.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Halo{}, fmt.Errorf("halo %s/%d: %w", path, number, graph.ErrHaloNotFound)
	}
	if err != nil {
		return graph.Halo{}, fmt.Errorf("read halo %s/%d: %w", path, number, err)
	}
	return h, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimestep(row rowScanner) (graph.Timestep, error) {
	var ts graph.Timestep
	err := row.Scan(&ts.ID, &ts.Simulation, &ts.Extension, &ts.TimeGyr, &ts.Redshift)
	return ts, err
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/ir"
)

// CreateSimulation inserts a simulation if it does not exist and returns
// its ID. Idempotent.
func (s *Store) CreateSimulation(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.simulationID(ctx, name)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create simulation %s: %w", name, err)
	}
	return id, nil
}

func (s *Store) simulationID(ctx context.Context, name string) (int64, error) {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO simulations (basename) VALUES (?)
		ON CONFLICT(basename) DO NOTHING
	`, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.conn(ctx).QueryRowContext(ctx, `SELECT id FROM simulations WHERE basename = ?`, name).Scan(&id)
	return id, err
}

// AddTimestep inserts a timestep, creating its simulation if needed.
// The path simulation/extension must be unused.
func (s *Store) AddTimestep(ctx context.Context, simulation, extension string, timeGyr, redshift float64) (graph.Timestep, error) {
	ts := graph.Timestep{
		Simulation: simulation,
		Extension:  extension,
		TimeGyr:    timeGyr,
		Redshift:   redshift,
	}
	err := s.WithTx(ctx, func(ctx context.Context) error {
		simID, err := s.simulationID(ctx, simulation)
		if err != nil {
			return err
		}
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO timesteps (simulation_id, extension, time_gyr, redshift)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(simulation_id, extension) DO NOTHING
		`, simID, extension, timeGyr, redshift)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("timestep %s already exists", ts.Path())
		}
		id, err := res.LastInsertId()
		ts.ID = graph.TimestepID(id)
		return err
	})
	if err != nil {
		return graph.Timestep{}, fmt.Errorf("write timestep: %w", err)
	}
	return ts, nil
}

// AddHalo inserts halo number into a timestep. Numbers are unique per
// timestep.
func (s *Store) AddHalo(ctx context.Context, timestep graph.TimestepID, number int64) (graph.Halo, error) {
	h := graph.Halo{Timestep: timestep, Number: number}
	err := s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Timestep(ctx, timestep); err != nil {
			return err
		}
		res, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO halos (timestep_id, halo_number) VALUES (?, ?)
			ON CONFLICT(timestep_id, halo_number) DO NOTHING
		`, timestep, number)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("halo %d already exists in timestep %d", number, timestep)
		}
		id, err := res.LastInsertId()
		h.ID = graph.HaloID(id)
		return err
	})
	if err != nil {
		return graph.Halo{}, fmt.Errorf("write halo: %w", err)
	}
	return h, nil
}

// SetProperty stores a property value, replacing any previous value.
// Storing null removes the property.
func (s *Store) SetProperty(ctx context.Context, halo graph.HaloID, name string, v ir.Value) error {
	err := s.WithTx(ctx, func(ctx context.Context) error {
		nameID, err := s.dictionaryID(ctx, name)
		if err != nil {
			return err
		}
		return s.setProperty(ctx, halo, nameID, v)
	})
	if err != nil {
		return fmt.Errorf("write property %s: %w", name, err)
	}
	return nil
}

// SetProperties stores values[i] as property name of halos[i], in one
// transaction.
func (s *Store) SetProperties(ctx context.Context, name string, halos []graph.HaloID, values ir.Column) error {
	if len(halos) != len(values) {
		return fmt.Errorf("write property %s: %d halos but %d values", name, len(halos), len(values))
	}
	err := s.WithTx(ctx, func(ctx context.Context) error {
		nameID, err := s.dictionaryID(ctx, name)
		if err != nil {
			return err
		}
		for i, h := range halos {
			if err := s.setProperty(ctx, h, nameID, values[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write property %s: %w", name, err)
	}
	s.logger.Debug("properties written", "name", name, "halos", len(halos))
	return nil
}

func (s *Store) setProperty(ctx context.Context, halo graph.HaloID, nameID int64, v ir.Value) error {
	if _, err := s.Halo(ctx, halo); err != nil {
		return err
	}
	if ir.IsNull(v) {
		_, err := s.conn(ctx).ExecContext(ctx,
			`DELETE FROM properties WHERE halo_id = ? AND name_id = ?`, halo, nameID)
		return err
	}

	sv, err := marshalValue(v)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO properties (halo_id, name_id, kind, data_real, data_int, data_text, data_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(halo_id, name_id) DO UPDATE SET
			kind = excluded.kind,
			data_real = excluded.data_real,
			data_int = excluded.data_int,
			data_text = excluded.data_text,
			data_blob = excluded.data_blob
	`, halo, nameID, sv.kind, sv.num, sv.integer, sv.text, sv.blob)
	return err
}

// AddLink inserts a directed link. Both halos must exist and belong to
// different timesteps.
func (s *Store) AddLink(ctx context.Context, l graph.Link) error {
	err := s.WithTx(ctx, func(ctx context.Context) error {
		src, err := s.Halo(ctx, l.Source)
		if err != nil {
			return fmt.Errorf("link source: %w", err)
		}
		dst, err := s.Halo(ctx, l.Target)
		if err != nil {
			return fmt.Errorf("link target: %w", err)
		}
		if src.Timestep == dst.Timestep {
			return fmt.Errorf("link %d -> %d: %w", l.Source, l.Target, graph.ErrSameTimestepLink)
		}
		relID, err := s.dictionaryID(ctx, string(l.Relation))
		if err != nil {
			return err
		}
		_, err = s.conn(ctx).ExecContext(ctx, `
			INSERT INTO links (halo_from_id, halo_to_id, relation_id, weight)
			VALUES (?, ?, ?, ?)
		`, l.Source, l.Target, relID, marshalWeight(l.Weight))
		return err
	})
	if err != nil {
		return fmt.Errorf("write link: %w", err)
	}
	return nil
}

// dictionaryID returns the ID of text, inserting it if needed.
func (s *Store) dictionaryID(ctx context.Context, text string) (int64, error) {
	if text == "" {
		return 0, errors.New("empty name")
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO dictionary (text) VALUES (?)
		ON CONFLICT(text) DO NOTHING
	`, text)
	if err != nil {
		return 0, err
	}
	id, ok, err := s.lookupDictionary(ctx, text)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("dictionary entry %q vanished", text)
	}
	return id, nil
}

// lookupDictionary returns the ID of text without inserting it.
func (s *Store) lookupDictionary(ctx context.Context, text string) (int64, bool, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT id FROM dictionary WHERE text = ?`, text).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read dictionary: %w", err)
	}
	return id, true, nil
}

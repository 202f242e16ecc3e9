package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/halodb/internal/ir"
	"github.com/roach88/halodb/internal/writelock"
)

func TestWithTx_LockHeldForTransaction(t *testing.T) {
	h := writelock.NewHandle(writelock.NewLocal(), writelock.WithOwnerGenerator(writelock.NewFixedGenerator("w1")))
	s := createTestStore(t, WithWriteLock(h))
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context) error {
		assert.True(t, h.Held())
		assert.Equal(t, 1, h.Depth())
		_, err := s.AddTimestep(ctx, "sim", "ts1", 1, 0)
		assert.Equal(t, 1, h.Depth(), "nested writes join the open transaction")
		return err
	})
	require.NoError(t, err)
	assert.False(t, h.Held(), "released after commit")
	assert.Same(t, h, s.WriteLock())
}

func TestWithTx_RollbackReleasesLock(t *testing.T) {
	h := writelock.NewHandle(writelock.NewLocal())
	s := createTestStore(t, WithWriteLock(h))
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.AddTimestep(ctx, "sim", "ts1", 1, 0); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, h.Held(), "released after rollback")

	_, err = s.LookupTimestep(ctx, "sim/ts1")
	assert.Error(t, err, "rolled back write is not visible")
}

func TestWithTx_PanicRollsBackAndReleasesLock(t *testing.T) {
	h := writelock.NewHandle(writelock.NewLocal())
	s := createTestStore(t, WithWriteLock(h))
	ctx := context.Background()

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.WithTx(ctx, func(ctx context.Context) error {
			if _, err := s.AddTimestep(ctx, "sim", "ts1", 1, 0); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.False(t, h.Held(), "released after panic")

	_, err := s.LookupTimestep(ctx, "sim/ts1")
	assert.Error(t, err, "write from the panicking transaction is rolled back")

	_, err = s.AddTimestep(ctx, "sim", "ts1", 1, 0)
	require.NoError(t, err, "store accepts writes after the panic")
}

func TestWithTx_ReadsInsideTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context) error {
		ts, err := s.AddTimestep(ctx, "sim", "ts1", 1, 0)
		if err != nil {
			return err
		}
		got, err := s.LookupTimestep(ctx, "sim/ts1")
		if err != nil {
			return err
		}
		assert.Equal(t, ts, got)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_CancelledContext(t *testing.T) {
	h := writelock.NewHandle(writelock.NewLocal())
	s := createTestStore(t, WithWriteLock(h))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.WithTx(ctx, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
	assert.False(t, h.Held())
}

// Two stores on one file, one handle each, sharing a backend: the workers'
// write transactions never overlap.
func TestWithTx_SerializesWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	backend := writelock.NewLocal()
	ctx := context.Background()

	seed, err := Open(path)
	require.NoError(t, err)
	ts, err := seed.AddTimestep(ctx, "sim", "ts1", 1, 0)
	require.NoError(t, err)
	halo, err := seed.AddHalo(ctx, ts.ID, 1)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	var inside, overlaps atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < 4; w++ {
		s, err := Open(path, WithWriteLock(writelock.NewHandle(backend)))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		name := []string{"a", "b", "c", "d"}[w]
		g.Go(func() error {
			for i := 0; i < 10; i++ {
				err := s.WithTx(gctx, func(ctx context.Context) error {
					if inside.Add(1) > 1 {
						overlaps.Add(1)
					}
					defer inside.Add(-1)
					return s.SetProperty(ctx, halo.ID, name, ir.Int(i))
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, overlaps.Load())
}

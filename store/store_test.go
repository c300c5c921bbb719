package store

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
	"github.com/aukilabs/navgrid/sector"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T, id sector.Identity, positions ...cell.Pos) []byte {
	var cells []*payload.Cell
	for _, p := range positions {
		c, err := payload.New(payload.KindGraph, p,
			[]payload.Vertex{{X: float32(p.X) * 10, Y: float32(p.Y) * 10}, {X: float32(p.X)*10 + 5, Y: float32(p.Y) * 10}},
			nil,
			[]payload.Edge{{Start: 0, End: 1}},
		)
		require.NoError(t, err)
		cells = append(cells, c)
	}

	s, err := sector.New(id, payload.KindGraph, cells...)
	require.NoError(t, err)

	archive, err := sector.EncodeArchive(s, sector.CodecZstd, binary.LittleEndian)
	require.NoError(t, err)
	return archive
}

func newTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "sectors", "navgrid.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	idA := sector.NewIdentity(10, uuid.New(), uuid.New())
	idB := sector.NewIdentity(20, uuid.New())
	archiveA := newTestArchive(t, idA, cell.NewPos(0, 0), cell.NewPos(1, 0))
	archiveB := newTestArchive(t, idB, cell.NewPos(4, 4))

	t.Run("put and get", func(t *testing.T) {
		id, err := s.Put(ctx, archiveA)
		require.NoError(t, err)
		require.True(t, idA.Equal(id))

		_, err = s.Put(ctx, archiveB)
		require.NoError(t, err)

		got, err := s.Get(ctx, idA)
		require.NoError(t, err)
		require.Equal(t, archiveA, got)
	})

	t.Run("put replaces", func(t *testing.T) {
		_, err := s.Put(ctx, archiveA)
		require.NoError(t, err)

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
	})

	t.Run("list", func(t *testing.T) {
		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		byKey := make(map[string]Entry)
		for _, e := range entries {
			byKey[e.Identity.Key()] = e
		}

		a := byKey[idA.Key()]
		require.True(t, idA.Equal(a.Identity))
		require.Equal(t, "graph", a.Kind)
		require.Equal(t, 2, a.CellCount)
		require.Equal(t, len(archiveA), a.Size)
		require.False(t, a.UpdatedAt.IsZero())

		require.Equal(t, 1, byKey[idB.Key()].CellCount)
	})

	t.Run("unknown sector", func(t *testing.T) {
		_, err := s.Get(ctx, sector.NewIdentity(1, uuid.New()))
		require.True(t, errors.IsType(err, ErrTypeNotFound))

		_, err = s.Get(ctx, sector.NewIdentity(11, idA.GUIDs...))
		require.True(t, errors.IsType(err, ErrTypeNotFound))
	})

	t.Run("invalid archive is refused", func(t *testing.T) {
		_, err := s.Put(ctx, []byte("not an archive"))
		require.True(t, errors.IsType(err, sector.ErrTypeInvalidArchive))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, idB))
		require.True(t, errors.IsType(s.Delete(ctx, idB), ErrTypeNotFound))

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}

func TestOpen(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "navgrid.db")
	s, err := Open(path)
	require.NoError(t, err)

	id := sector.NewIdentity(5, uuid.New())
	_, err = s.Put(context.Background(), newTestArchive(t, id, cell.NewPos(0, 0)))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, id.Equal(entries[0].Identity))
}

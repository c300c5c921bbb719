package streamer

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/cellgrid"
	"github.com/aukilabs/navgrid/payload"
	"github.com/aukilabs/navgrid/sector"
	"github.com/aukilabs/navgrid/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mutex    sync.Mutex
	archives map[string][]byte
	ids      []sector.Identity
}

func newMemorySource() *memorySource {
	return &memorySource{
		archives: make(map[string][]byte),
	}
}

func (s *memorySource) add(t *testing.T, sec *sector.Sector) {
	data, err := sector.EncodeArchive(sec, sector.CodecZstd, binary.LittleEndian)
	require.NoError(t, err)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.archives[sec.Identity.String()] = data
	s.ids = append(s.ids, sec.Identity)
}

func (s *memorySource) List(ctx context.Context) ([]store.Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries := make([]store.Entry, len(s.ids))
	for i, id := range s.ids {
		entries[i] = store.Entry{Identity: id}
	}
	return entries, nil
}

func (s *memorySource) Get(ctx context.Context, id sector.Identity) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, ok := s.archives[id.String()]
	if !ok {
		return nil, errors.New("archive not found").WithType(store.ErrTypeNotFound)
	}
	return data, nil
}

func testSector(t *testing.T, x int32) *sector.Sector {
	x0 := float32(x) * 10
	c, err := payload.New(payload.KindNavMesh, cell.NewPos(x, 0),
		[]payload.Vertex{{X: x0, Y: 0}, {X: x0 + 10, Y: 0}, {X: x0 + 10, Y: 10}},
		nil,
		[]payload.Edge{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 0}},
	)
	require.NoError(t, err)

	s, err := sector.New(sector.NewIdentity(1, uuid.New()), payload.KindNavMesh, c)
	require.NoError(t, err)
	return s
}

func newTestGrid(t *testing.T) *cellgrid.Grid {
	c := cellgrid.DefaultConfig(payload.KindNavMesh)
	c.Debug = true

	g, err := cellgrid.New(c)
	require.NoError(t, err)
	return g
}

func TestStreamer(t *testing.T) {
	t.Run("loaded sectors are inserted on update", func(t *testing.T) {
		src := newMemorySource()
		a := testSector(t, 0)
		b := testSector(t, 1)
		src.add(t, a)
		src.add(t, b)

		g := newTestGrid(t)
		var activated []cell.Pos
		g.OnActivate(func(c *cellgrid.ActiveCell, _ any) {
			activated = append(activated, c.Pos())
		}, nil)

		s := New(g, src, DefaultConfig())

		err := s.Load(context.Background(), b.Identity, a.Identity)
		require.NoError(t, err)

		inserts, _ := s.Pending()
		require.Equal(t, 2, inserts)
		require.Empty(t, g.Sectors())

		inserted, removed := s.Update(context.Background())
		require.Equal(t, 2, inserted)
		require.Zero(t, removed)
		require.Len(t, g.Sectors(), 2)
		require.NotNil(t, g.Active(cell.NewPos(0, 0)))
		require.NotNil(t, g.Active(cell.NewPos(1, 0)))
		require.Equal(t, []cell.Pos{cell.NewPos(1, 0), cell.NewPos(0, 0)}, activated)
	})

	t.Run("load all", func(t *testing.T) {
		src := newMemorySource()
		for x := int32(0); x < 5; x++ {
			src.add(t, testSector(t, x))
		}

		g := newTestGrid(t)
		s := New(g, src, DefaultConfig())

		require.NoError(t, s.LoadAll(context.Background()))
		inserted, _ := s.Update(context.Background())
		require.Equal(t, 5, inserted)
		require.Equal(t, cell.NewBox(cell.NewPos(0, 0), cell.NewPos(4, 0)), g.Bounds())
	})

	t.Run("failed load queues nothing", func(t *testing.T) {
		src := newMemorySource()
		a := testSector(t, 0)
		src.add(t, a)

		s := New(newTestGrid(t), src, DefaultConfig())
		err := s.Load(context.Background(), a.Identity, sector.NewIdentity(3, uuid.New()))
		require.Error(t, err)

		inserts, _ := s.Pending()
		require.Zero(t, inserts)
	})

	t.Run("unload removes sectors", func(t *testing.T) {
		src := newMemorySource()
		a := testSector(t, 0)
		src.add(t, a)

		g := newTestGrid(t)
		s := New(g, src, DefaultConfig())
		require.NoError(t, s.Load(context.Background(), a.Identity))
		s.Update(context.Background())

		s.Unload(a.Identity, sector.NewIdentity(9, uuid.New()))
		_, removals := s.Pending()
		require.Equal(t, 2, removals)

		inserted, removed := s.Update(context.Background())
		require.Zero(t, inserted)
		require.Equal(t, 1, removed)
		require.Empty(t, g.Sectors())
		require.Nil(t, g.Active(cell.NewPos(0, 0)))
	})

	t.Run("insertions are paced", func(t *testing.T) {
		src := newMemorySource()
		for x := int32(0); x < 3; x++ {
			src.add(t, testSector(t, x))
		}

		c := DefaultConfig()
		c.InsertRate = 0.001
		c.InsertBurst = 2

		g := newTestGrid(t)
		s := New(g, src, c)
		require.NoError(t, s.LoadAll(context.Background()))

		inserted, _ := s.Update(context.Background())
		require.Equal(t, 2, inserted)

		inserted, _ = s.Update(context.Background())
		require.Zero(t, inserted)

		inserts, _ := s.Pending()
		require.Equal(t, 1, inserts)
	})

	t.Run("store as source", func(t *testing.T) {
		st, err := store.Open(t.TempDir() + "/sectors.db")
		require.NoError(t, err)
		defer st.Close()

		a := testSector(t, 2)
		data, err := sector.EncodeArchive(a, sector.CodecLZ4, binary.LittleEndian)
		require.NoError(t, err)
		_, err = st.Put(context.Background(), data)
		require.NoError(t, err)

		g := newTestGrid(t)
		s := New(g, st, DefaultConfig())
		require.NoError(t, s.LoadAll(context.Background()))
		s.Update(context.Background())

		ref, err := g.Sector(a.Identity)
		require.NoError(t, err)
		require.True(t, ref.IsLoaded())
	})
}

package cell

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPosNeighbor(t *testing.T) {
	p := NewPos(3, 4)

	require.Equal(t, NewPos(4, 4), p.Neighbor(East))
	require.Equal(t, NewPos(3, 5), p.Neighbor(North))
	require.Equal(t, NewPos(2, 4), p.Neighbor(West))
	require.Equal(t, NewPos(3, 3), p.Neighbor(South))

	for _, d := range Directions {
		require.Equal(t, p, p.Neighbor(d).Neighbor(d.Opposite()))
	}
}

func TestPosLess(t *testing.T) {
	require.True(t, NewPos(5, 0).Less(NewPos(0, 1)))
	require.True(t, NewPos(0, 1).Less(NewPos(1, 1)))
	require.False(t, NewPos(1, 1).Less(NewPos(1, 1)))
}

func TestBox(t *testing.T) {
	t.Run("empty box", func(t *testing.T) {
		b := EmptyBox()
		require.False(t, b.Valid())
		require.Zero(t, b.Count())
		require.False(t, b.IsInside(NewPos(0, 0)))
		require.Equal(t, BoxAt(NewPos(2, 3)), b.Enlarged(NewPos(2, 3)))
	})

	t.Run("row major index round trip", func(t *testing.T) {
		b := NewBox(NewPos(-2, -1), NewPos(1, 2))
		require.Equal(t, 4, b.CountX())
		require.Equal(t, 4, b.CountY())
		require.Equal(t, 16, b.Count())

		seen := make(map[int]struct{})
		b.ForEach(func(p Pos) {
			idx := b.RowMajorIndex(p)
			require.Equal(t, p, b.PosFromIndex(idx))
			seen[idx] = struct{}{}
		})
		require.Len(t, seen, 16)
		require.Equal(t, 0, b.RowMajorIndex(NewPos(-2, -1)))
		require.Equal(t, 15, b.RowMajorIndex(NewPos(1, 2)))
	})

	t.Run("union and intersect", func(t *testing.T) {
		a := NewBox(NewPos(0, 0), NewPos(2, 2))
		b := NewBox(NewPos(1, 1), NewPos(4, 3))

		require.Equal(t, NewBox(NewPos(0, 0), NewPos(4, 3)), a.Union(b))
		require.Equal(t, NewBox(NewPos(1, 1), NewPos(2, 2)), a.Intersect(b))
		require.False(t, a.Intersect(NewBox(NewPos(5, 5), NewPos(6, 6))).Valid())
		require.True(t, a.Union(b).Contains(a))
		require.False(t, a.Contains(b))
		require.True(t, a.Contains(EmptyBox()))
	})

	t.Run("count saturates on full range", func(t *testing.T) {
		b := NewBox(NewPos(math.MinInt32, math.MinInt32), NewPos(math.MaxInt32, math.MaxInt32))
		require.Equal(t, 1<<32, b.CountX())
		require.Equal(t, math.MaxInt, b.Count())

		b = NewBox(NewPos(math.MinInt32, 0), NewPos(math.MaxInt32, 0))
		require.Equal(t, 1<<32, b.Count())
	})

	t.Run("grown", func(t *testing.T) {
		b := BoxAt(NewPos(0, 0)).Grown(1)
		require.Equal(t, 9, b.Count())
	})
}

func TestRulers(t *testing.T) {
	r := NewRulers(NewBox(NewPos(0, 0), NewPos(2, 2)), 10)
	require.Len(t, r.X, 4)
	require.Len(t, r.Y, 4)

	t.Run("inside a cell", func(t *testing.T) {
		require.Equal(t, NewPos(1, 1), r.Pos(15, 15))
		require.Equal(t, NewPos(2, 0), r.Pos(25, 0.5))
	})

	t.Run("border on x belongs to the western cell", func(t *testing.T) {
		require.Equal(t, NewPos(0, 1), r.Pos(10, 15))
		require.Equal(t, NewPos(1, 1), r.Pos(20, 15))
	})

	t.Run("border on y belongs to the northern cell", func(t *testing.T) {
		require.Equal(t, NewPos(1, 1), r.Pos(15, 10))
		require.Equal(t, NewPos(1, 2), r.Pos(15, 20))
	})

	t.Run("out of range degrades to nearest valid", func(t *testing.T) {
		p := r.Pos(-35, 100)
		require.False(t, r.Box().IsInside(p))
		require.Equal(t, NewPos(0, 2), r.Clamp(p))
	})

	t.Run("world bounds", func(t *testing.T) {
		minX, minY, maxX, maxY := r.WorldBounds(NewPos(1, 2))
		require.Equal(t, float32(10), minX)
		require.Equal(t, float32(20), minY)
		require.Equal(t, float32(20), maxX)
		require.Equal(t, float32(30), maxY)

		minX, _, maxX, _ = r.WorldBounds(NewPos(5, 0))
		require.Equal(t, float32(50), minX)
		require.Equal(t, float32(60), maxX)
	})
}

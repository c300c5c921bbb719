package payload

import (
	"encoding/binary"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
	"github.com/stretchr/testify/require"
)

func newTestCell(t *testing.T) *Cell {
	c, err := New(KindGraph, cell.NewPos(1, -2),
		[]Vertex{{X: 10, Y: -20, Z: 1}, {X: 15, Y: -15, Z: 2.5}, {X: 20, Y: -11, Z: 0}},
		[]uint8{1, 2, 3},
		[]Edge{{Start: 0, End: 1}, {Start: 1, End: 2}},
	)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("header is computed", func(t *testing.T) {
		c := newTestCell(t)
		require.Equal(t, uint32(3), c.VertexCount)
		require.Equal(t, uint32(2), c.EdgeCount)
		require.Equal(t, float32(10), c.MinX)
		require.Equal(t, float32(-20), c.MinY)
		require.Equal(t, float32(0), c.MinZ)
		require.Equal(t, float32(20), c.MaxX)
		require.Equal(t, float32(-11), c.MaxY)
		require.Equal(t, float32(2.5), c.MaxZ)

		a, b := c.EdgeVertices(1)
		require.Equal(t, c.Vertices[1], a)
		require.Equal(t, c.Vertices[2], b)
	})

	t.Run("nil terrain defaults to zero", func(t *testing.T) {
		c, err := New(KindNavMesh, cell.NewPos(0, 0), []Vertex{{}, {}}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, []uint8{0, 0}, c.Terrain)
	})

	t.Run("edge with unknown vertex is rejected", func(t *testing.T) {
		_, err := New(KindNavMesh, cell.NewPos(0, 0), []Vertex{{}}, nil, []Edge{{Start: 0, End: 4}})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := New(Kind(9), cell.NewPos(0, 0), nil, nil, nil)
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))
	})
}

func TestCodec(t *testing.T) {
	orders := []struct {
		name  string
		order binary.ByteOrder
	}{
		{name: "little endian", order: binary.LittleEndian},
		{name: "big endian", order: binary.BigEndian},
	}

	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			c := newTestCell(t)

			blob, err := Encode(c, o.order)
			require.NoError(t, err)

			order, err := ByteOrder(blob)
			require.NoError(t, err)
			require.Equal(t, o.order, order)

			decoded, err := Decode(blob)
			require.NoError(t, err)
			require.Equal(t, c, decoded)
		})
	}

	t.Run("swap endianness", func(t *testing.T) {
		c := newTestCell(t)

		little, err := Encode(c, binary.LittleEndian)
		require.NoError(t, err)
		big, err := Encode(c, binary.BigEndian)
		require.NoError(t, err)

		require.NoError(t, SwapEndianness(little))
		require.Equal(t, big, little)

		require.NoError(t, SwapEndianness(little))
		decoded, err := Decode(little)
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	})

	t.Run("corrupted blobs are rejected", func(t *testing.T) {
		blob, err := Encode(newTestCell(t), binary.LittleEndian)
		require.NoError(t, err)

		_, err = Decode(blob[:10])
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))

		_, err = Decode(blob[:len(blob)-1])
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))

		bad := append([]byte(nil), blob...)
		bad[0] = 'X'
		_, err = Decode(bad)
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))

		bad = append([]byte(nil), blob...)
		bad[4] = '?'
		_, err = Decode(bad)
		require.True(t, errors.IsType(err, ErrTypeInvalidPayload))
	})
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindNavMesh, KindGraph} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}

	_, err := ParseKind("road")
	require.True(t, errors.IsType(err, ErrTypeInvalidPayload))
}

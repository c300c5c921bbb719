package sector

import (
	"encoding/binary"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	guidA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	guidB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	guidC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func TestIdentity(t *testing.T) {
	t.Run("guids are sorted and deduplicated", func(t *testing.T) {
		id := NewIdentity(42, guidC, guidA, guidC, guidB)
		require.Equal(t, []uuid.UUID{guidA, guidB, guidC}, id.GUIDs)
		require.Equal(t, int64(42), id.Timestamp)
		require.True(t, id.Contains(guidB))
		require.False(t, id.Contains(uuid.New()))
	})

	t.Run("composition ignores timestamp", func(t *testing.T) {
		a := NewIdentity(1, guidA, guidB)
		b := NewIdentity(2, guidB, guidA)

		require.True(t, a.SameComposition(b))
		require.False(t, a.Equal(b))
		require.True(t, a.Less(b))
		require.False(t, b.Less(a))
		require.True(t, a.Equal(NewIdentity(1, guidB, guidA)))
	})

	t.Run("ordering by composition first", func(t *testing.T) {
		a := NewIdentity(100, guidA)
		b := NewIdentity(1, guidB)
		require.True(t, a.Less(b))
		require.False(t, b.Less(a))
	})

	t.Run("key", func(t *testing.T) {
		id := NewIdentity(0, guidB, guidA)
		require.Equal(t, guidA.String()+"+"+guidB.String(), id.Key())
		require.True(t, Identity{}.IsZero())
	})
}

func TestActiveSet(t *testing.T) {
	s := NewActiveSet(guidC, guidA)
	require.Equal(t, 2, s.Len())
	require.Equal(t, []uuid.UUID{guidA, guidC}, s.GUIDs())

	require.True(t, s.Covers(NewIdentity(0, guidA)))
	require.True(t, s.Covers(NewIdentity(0, guidA, guidC)))
	require.False(t, s.Covers(NewIdentity(0, guidA, guidB)))
	require.True(t, s.Covers(Identity{}))

	require.True(t, s.Add(guidB))
	require.False(t, s.Add(guidB))
	require.True(t, s.Covers(NewIdentity(0, guidA, guidB, guidC)))

	require.True(t, s.Remove(guidA))
	require.False(t, s.Remove(guidA))
	require.False(t, s.Contains(guidA))
	require.False(t, s.Covers(NewIdentity(0, guidA, guidB)))
}

func newTestSector(t *testing.T) *Sector {
	c0, err := payload.New(payload.KindNavMesh, cell.NewPos(0, 0),
		[]payload.Vertex{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}, {X: 10, Y: 10, Z: 1}},
		[]uint8{0, 1, 2},
		[]payload.Edge{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 0}},
	)
	require.NoError(t, err)

	c1, err := payload.New(payload.KindNavMesh, cell.NewPos(1, 0),
		[]payload.Vertex{{X: 10, Y: 0, Z: 0}, {X: 20, Y: 0, Z: 0}, {X: 10, Y: 10, Z: 1}},
		nil,
		[]payload.Edge{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 0}},
	)
	require.NoError(t, err)

	s, err := New(NewIdentity(7, guidA, guidB), payload.KindNavMesh, c0, c1)
	require.NoError(t, err)
	return s
}

func TestSector(t *testing.T) {
	t.Run("box", func(t *testing.T) {
		s := newTestSector(t)
		require.Equal(t, cell.NewBox(cell.NewPos(0, 0), cell.NewPos(1, 0)), s.Box())
	})

	t.Run("empty identity is rejected", func(t *testing.T) {
		_, err := New(Identity{}, payload.KindGraph)
		require.True(t, errors.IsType(err, ErrTypeInvalidSector))
	})

	t.Run("kind mismatch is rejected", func(t *testing.T) {
		s := newTestSector(t)
		_, err := New(s.Identity, payload.KindGraph, s.Cells...)
		require.True(t, errors.IsType(err, ErrTypeInvalidSector))
	})

	t.Run("duplicate coordinates are rejected", func(t *testing.T) {
		s := newTestSector(t)
		_, err := New(s.Identity, s.Kind, s.Cells[0], s.Cells[0])
		require.True(t, errors.IsType(err, ErrTypeInvalidSector))
	})

	t.Run("unsorted or duplicated guids are rejected", func(t *testing.T) {
		s := newTestSector(t)
		sorted := NewIdentity(1, uuid.New(), uuid.New())
		require.True(t, sorted.IsSorted())

		identities := map[string]Identity{
			"unsorted":   {GUIDs: []uuid.UUID{sorted.GUIDs[1], sorted.GUIDs[0]}, Timestamp: 1},
			"duplicated": {GUIDs: []uuid.UUID{sorted.GUIDs[0], sorted.GUIDs[0]}, Timestamp: 1},
		}
		for name, id := range identities {
			t.Run(name, func(t *testing.T) {
				require.False(t, id.IsSorted())

				_, err := New(id, s.Kind, s.Cells...)
				require.Error(t, err)
				require.True(t, errors.IsType(err, ErrTypeInvalidSector))
			})
		}
	})
}

func TestArchive(t *testing.T) {
	codecs := []Codec{CodecNone, CodecZstd, CodecLZ4}

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			s := newTestSector(t)

			data, err := EncodeArchive(s, codec, binary.LittleEndian)
			require.NoError(t, err)

			decoded, err := DecodeArchive(data)
			require.NoError(t, err)
			require.Equal(t, s, decoded)
		})
	}

	t.Run("big endian cells", func(t *testing.T) {
		s := newTestSector(t)

		data, err := EncodeArchive(s, CodecZstd, binary.BigEndian)
		require.NoError(t, err)

		decoded, err := DecodeArchive(data)
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	})

	t.Run("parse codec", func(t *testing.T) {
		for _, codec := range codecs {
			parsed, err := ParseCodec(codec.String())
			require.NoError(t, err)
			require.Equal(t, codec, parsed)
		}

		_, err := ParseCodec("brotli")
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))
	})

	t.Run("corrupted archives are rejected", func(t *testing.T) {
		data, err := EncodeArchive(newTestSector(t), CodecNone, binary.LittleEndian)
		require.NoError(t, err)

		_, err = DecodeArchive(data[:8])
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))

		_, err = DecodeArchive(data[:len(data)-1])
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))

		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, err = DecodeArchive(bad)
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))

		bad = append([]byte(nil), data...)
		bad[5] = 9
		binary.LittleEndian.PutUint32(bad[12:], 1)
		_, err = DecodeArchive(bad)
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))
	})

	t.Run("manifest is validated", func(t *testing.T) {
		raw := []byte(`{"version":1,"kind":"road","guids":[],"timestamp":0,"cell_count":0}`)
		_, err := decodeManifest(raw)
		require.True(t, errors.IsType(err, ErrTypeInvalidArchive))

		raw = []byte(`{"version":1,"kind":"graph","guids":["` + guidA.String() + `"],"timestamp":3,"cell_count":0}`)
		m, err := decodeManifest(raw)
		require.NoError(t, err)
		require.Equal(t, "graph", m.Kind)
		require.Equal(t, int64(3), m.Timestamp)
	})
}

func rawArchive(codec Codec, size, compressedSize uint32, body []byte) []byte {
	out := make([]byte, archiveHeaderSize, archiveHeaderSize+len(body))
	copy(out, archiveMagic[:])
	out[4] = archiveVersion
	out[5] = byte(codec)
	binary.LittleEndian.PutUint32(out[8:], size)
	binary.LittleEndian.PutUint32(out[12:], compressedSize)
	return append(out, body...)
}

func TestDecodeMalformedArchive(t *testing.T) {
	manifest := func(cellCount string) []byte {
		return appendChunk(nil, []byte(`{"version":1,"kind":"graph","guids":["`+
			guidA.String()+`"],"timestamp":1,"cell_count":`+cellCount+`}`))
	}

	huge := manifest("4000000000000000000")
	tooMany := manifest("3")

	tests := []struct {
		name    string
		archive []byte
	}{
		{
			name:    "cell count beyond int range of the body",
			archive: rawArchive(CodecNone, uint32(len(huge)), 0, huge),
		},
		{
			name:    "cell count larger than the remaining chunks",
			archive: rawArchive(CodecNone, uint32(len(tooMany)), 0, tooMany),
		},
		{
			name:    "uncompressed size above the limit",
			archive: rawArchive(CodecZstd, ^uint32(0), 8, make([]byte, 8)),
		},
		{
			name:    "uncompressed size above the lz4 ratio",
			archive: rawArchive(CodecLZ4, 1<<20, 8, make([]byte, 8)),
		},
		{
			name:    "garbage zstd frame",
			archive: rawArchive(CodecZstd, 1024, 8, []byte("notzstd!")),
		},
		{
			name:    "unknown codec",
			archive: rawArchive(Codec(7), 64, 8, make([]byte, 8)),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = DecodeArchive(test.archive)
			})
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidArchive))
		})
	}
}

package sector

import (
	"encoding/binary"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/payload"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/segmentio/encoding/json"
)

// Codec is the compression applied to the body of a sector archive.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseCodec returns the codec with the given name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "none", "":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return CodecNone, errors.New("unknown archive codec").
			WithType(ErrTypeInvalidArchive).
			WithTag("codec", name)
	}
}

// Archive layout:
//
//	0   magic "NVSA"
//	4   version
//	5   codec
//	6   reserved (2 bytes)
//	8   uncompressed body size   uint32 little endian
//	12  compressed body size     uint32 little endian, 0 when stored raw
//	16  body
//
// The uncompressed body is a length-prefixed JSON manifest followed by one
// length-prefixed payload blob per cell.
const (
	archiveVersion    = 1
	archiveHeaderSize = 16

	// An lz4 block cannot expand more than this.
	lz4MaxRatio = 255
)

// MaxArchiveBodySize is the largest uncompressed body DecodeArchive accepts.
var MaxArchiveBodySize uint32 = 64 << 20

var archiveMagic = [4]byte{'N', 'V', 'S', 'A'}

type manifest struct {
	Version   int      `json:"version"`
	Kind      string   `json:"kind"`
	GUIDs     []string `json:"guids"`
	Timestamp int64    `json:"timestamp"`
	CellCount int      `json:"cell_count"`
}

var manifestSchema = jsonschema.MustCompileString("sector-manifest.schema.json", `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["version", "kind", "guids", "timestamp", "cell_count"],
	"properties": {
		"version": {"type": "integer", "const": 1},
		"kind": {"enum": ["navmesh", "graph"]},
		"guids": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "format": "uuid"}
		},
		"timestamp": {"type": "integer"},
		"cell_count": {"type": "integer", "minimum": 0}
	}
}`)

// EncodeArchive serializes a sector. Cell blobs are written with the given
// byte order so archives for big endian targets can be produced offline.
func EncodeArchive(s *Sector, codec Codec, order binary.ByteOrder) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	m := manifest{
		Version:   archiveVersion,
		Kind:      s.Kind.String(),
		GUIDs:     make([]string, len(s.Identity.GUIDs)),
		Timestamp: s.Identity.Timestamp,
		CellCount: len(s.Cells),
	}
	for i, g := range s.Identity.GUIDs {
		m.GUIDs[i] = g.String()
	}

	rawManifest, err := json.Marshal(m)
	if err != nil {
		return nil, errors.New("encoding sector manifest failed").Wrap(err)
	}

	body := appendChunk(nil, rawManifest)
	for _, c := range s.Cells {
		blob, err := payload.Encode(c, order)
		if err != nil {
			return nil, errors.New("encoding sector cell failed").
				WithTag("sector", s.Identity.String()).
				WithTag("pos", c.Pos.String()).
				Wrap(err)
		}
		body = appendChunk(body, blob)
	}

	compressed, err := compress(codec, body)
	if err != nil {
		return nil, err
	}

	out := make([]byte, archiveHeaderSize, archiveHeaderSize+len(body))
	copy(out[0:4], archiveMagic[:])
	out[4] = archiveVersion
	out[5] = byte(codec)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(body)))
	if compressed == nil {
		return append(out, body...), nil
	}
	binary.LittleEndian.PutUint32(out[12:], uint32(len(compressed)))
	return append(out, compressed...), nil
}

// DecodeArchive parses a sector archive. Cell blobs in a foreign byte order
// are accepted as is.
func DecodeArchive(data []byte) (*Sector, error) {
	if len(data) < archiveHeaderSize || [4]byte(data[0:4]) != archiveMagic {
		return nil, errors.New("not a sector archive").
			WithType(ErrTypeInvalidArchive)
	}
	if data[4] != archiveVersion {
		return nil, errors.New("unsupported sector archive version").
			WithType(ErrTypeInvalidArchive).
			WithTag("version", data[4])
	}

	codec := Codec(data[5])
	size := binary.LittleEndian.Uint32(data[8:])
	compressedSize := binary.LittleEndian.Uint32(data[12:])

	body, err := decompress(codec, data[archiveHeaderSize:], size, compressedSize)
	if err != nil {
		return nil, err
	}

	rawManifest, body, err := readChunk(body)
	if err != nil {
		return nil, err
	}

	m, err := decodeManifest(rawManifest)
	if err != nil {
		return nil, err
	}
	if m.CellCount > len(body)/4 {
		return nil, errors.New("sector manifest cell count exceeds the archive size").
			WithType(ErrTypeInvalidArchive).
			WithTag("cell_count", m.CellCount).
			WithTag("size", len(body))
	}

	guids := make([]uuid.UUID, len(m.GUIDs))
	for i, g := range m.GUIDs {
		if guids[i], err = uuid.Parse(g); err != nil {
			return nil, errors.New("sector manifest has a bad guid").
				WithType(ErrTypeInvalidArchive).
				WithTag("guid", g).
				Wrap(err)
		}
	}

	kind, err := payload.ParseKind(m.Kind)
	if err != nil {
		return nil, errors.New("sector manifest has a bad kind").
			WithType(ErrTypeInvalidArchive).
			Wrap(err)
	}

	s := &Sector{
		Identity: NewIdentity(m.Timestamp, guids...),
		Kind:     kind,
		Cells:    make([]*payload.Cell, 0, m.CellCount),
	}

	for i := 0; i < m.CellCount; i++ {
		var blob []byte
		if blob, body, err = readChunk(body); err != nil {
			return nil, err
		}

		c, err := payload.Decode(blob)
		if err != nil {
			return nil, errors.New("decoding sector cell failed").
				WithType(ErrTypeInvalidArchive).
				WithTag("sector", s.Identity.String()).
				WithTag("cell", i).
				Wrap(err)
		}
		s.Cells = append(s.Cells, c)
	}

	if len(body) != 0 {
		return nil, errors.New("sector archive has trailing data").
			WithType(ErrTypeInvalidArchive).
			WithTag("size", len(body))
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeManifest(raw []byte) (manifest, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return manifest{}, errors.New("sector manifest is not json").
			WithType(ErrTypeInvalidArchive).
			Wrap(err)
	}
	if err := manifestSchema.Validate(v); err != nil {
		return manifest{}, errors.New("sector manifest is invalid").
			WithType(ErrTypeInvalidArchive).
			Wrap(err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return manifest{}, errors.New("decoding sector manifest failed").
			WithType(ErrTypeInvalidArchive).
			Wrap(err)
	}
	return m, nil
}

// compress returns nil when the body should be stored raw.
func compress(codec Codec, body []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return nil, nil

	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.New("creating zstd encoder failed").Wrap(err)
		}
		defer enc.Close()
		return enc.EncodeAll(body, nil), nil

	case CodecLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := lz4.CompressBlock(body, compressed, nil)
		if err != nil {
			return nil, errors.New("lz4 compression failed").Wrap(err)
		}
		if n == 0 {
			// Incompressible.
			return nil, nil
		}
		return compressed[:n], nil

	default:
		return nil, errors.New("unknown archive codec").
			WithType(ErrTypeInvalidArchive).
			WithTag("codec", uint8(codec))
	}
}

func decompress(codec Codec, data []byte, size, compressedSize uint32) ([]byte, error) {
	if compressedSize == 0 {
		if uint32(len(data)) != size {
			return nil, errors.New("sector archive body size mismatch").
				WithType(ErrTypeInvalidArchive).
				WithTag("size", len(data)).
				WithTag("expected_size", size)
		}
		return data, nil
	}

	if size > MaxArchiveBodySize {
		return nil, errors.New("sector archive body is too large").
			WithType(ErrTypeInvalidArchive).
			WithTag("size", size).
			WithTag("max_size", MaxArchiveBodySize)
	}

	if uint32(len(data)) != compressedSize {
		return nil, errors.New("sector archive compressed size mismatch").
			WithType(ErrTypeInvalidArchive).
			WithTag("size", len(data)).
			WithTag("expected_size", compressedSize)
	}

	if codec == CodecLZ4 && uint64(size) > uint64(compressedSize)*lz4MaxRatio {
		return nil, errors.New("sector archive size exceeds the lz4 ratio").
			WithType(ErrTypeInvalidArchive).
			WithTag("size", size).
			WithTag("compressed_size", compressedSize)
	}

	body := make([]byte, size)

	switch codec {
	case CodecZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(max(uint64(size), 1)))
		if err != nil {
			return nil, errors.New("creating zstd decoder failed").Wrap(err)
		}
		defer dec.Close()

		if body, err = dec.DecodeAll(data, body[:0]); err != nil {
			return nil, errors.New("zstd decompression failed").
				WithType(ErrTypeInvalidArchive).
				Wrap(err)
		}

	case CodecLZ4:
		n, err := lz4.UncompressBlock(data, body)
		if err != nil {
			return nil, errors.New("lz4 decompression failed").
				WithType(ErrTypeInvalidArchive).
				Wrap(err)
		}
		body = body[:n]

	default:
		return nil, errors.New("unknown archive codec").
			WithType(ErrTypeInvalidArchive).
			WithTag("codec", uint8(codec))
	}

	if uint32(len(body)) != size {
		return nil, errors.New("decompressed sector archive size mismatch").
			WithType(ErrTypeInvalidArchive).
			WithTag("size", len(body)).
			WithTag("expected_size", size)
	}
	return body, nil
}

func appendChunk(buf, chunk []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(chunk)))
	return append(buf, chunk...)
}

func readChunk(buf []byte) (chunk, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, errors.New("sector archive is truncated").
			WithType(ErrTypeInvalidArchive)
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, errors.New("sector archive chunk is truncated").
			WithType(ErrTypeInvalidArchive).
			WithTag("chunk_size", n)
	}
	return buf[:n], buf[n:], nil
}

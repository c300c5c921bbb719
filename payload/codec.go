package payload

import (
	"encoding/binary"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
)

// Blob layout, every multi-byte field in the byte order given by the marker:
//
//	0   magic "NVCL"
//	4   byte order marker ('L' or 'B')
//	5   version
//	6   kind
//	7   reserved
//	8   pos x, pos y           int32
//	16  min x/y/z, max x/y/z   float32
//	40  vertex count           uint32
//	44  edge count             uint32
//	48  vertices               3 x float32 each
//	..  terrain types          1 byte each, padded to 4 bytes
//	..  edges                  2 x uint32 each
const (
	blobVersion    = 1
	headerSize     = 48
	vertexSize     = 12
	edgeSize       = 8
	littleEndianID = 'L'
	bigEndianID    = 'B'
)

var blobMagic = [4]byte{'N', 'V', 'C', 'L'}

// Encode serializes c with the given byte order.
func Encode(c *Cell, order binary.ByteOrder) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	vc := int(c.VertexCount)
	ec := int(c.EdgeCount)
	buf := make([]byte, blobSize(vc, ec))

	copy(buf[0:4], blobMagic[:])
	buf[4] = orderID(order)
	buf[5] = blobVersion
	buf[6] = byte(c.Kind)

	order.PutUint32(buf[8:], uint32(c.Pos.X))
	order.PutUint32(buf[12:], uint32(c.Pos.Y))
	bounds := [6]float32{c.MinX, c.MinY, c.MinZ, c.MaxX, c.MaxY, c.MaxZ}
	for i, f := range bounds {
		order.PutUint32(buf[16+4*i:], math.Float32bits(f))
	}
	order.PutUint32(buf[40:], c.VertexCount)
	order.PutUint32(buf[44:], c.EdgeCount)

	off := headerSize
	for _, v := range c.Vertices {
		order.PutUint32(buf[off:], math.Float32bits(v.X))
		order.PutUint32(buf[off+4:], math.Float32bits(v.Y))
		order.PutUint32(buf[off+8:], math.Float32bits(v.Z))
		off += vertexSize
	}

	copy(buf[off:], c.Terrain)
	off += align4(vc)

	for _, e := range c.Edges {
		order.PutUint32(buf[off:], e.Start)
		order.PutUint32(buf[off+4:], e.End)
		off += edgeSize
	}
	return buf, nil
}

// Decode parses a blob written in either byte order.
func Decode(blob []byte) (*Cell, error) {
	h, order, err := DecodeHeader(blob)
	if err != nil {
		return nil, err
	}

	vc := int(h.VertexCount)
	ec := int(h.EdgeCount)
	c := &Cell{
		Header:   h,
		Vertices: make([]Vertex, vc),
		Terrain:  make([]uint8, vc),
		Edges:    make([]Edge, ec),
	}

	off := headerSize
	for i := range c.Vertices {
		c.Vertices[i] = Vertex{
			X: math.Float32frombits(order.Uint32(blob[off:])),
			Y: math.Float32frombits(order.Uint32(blob[off+4:])),
			Z: math.Float32frombits(order.Uint32(blob[off+8:])),
		}
		off += vertexSize
	}

	copy(c.Terrain, blob[off:off+vc])
	off += align4(vc)

	for i := range c.Edges {
		c.Edges[i] = Edge{
			Start: order.Uint32(blob[off:]),
			End:   order.Uint32(blob[off+4:]),
		}
		off += edgeSize
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeHeader reads the typed header of a blob and returns the byte order the
// blob is written in.
func DecodeHeader(blob []byte) (Header, binary.ByteOrder, error) {
	if len(blob) < headerSize {
		return Header{}, nil, errors.New("payload blob is too short").
			WithType(ErrTypeInvalidPayload).
			WithTag("size", len(blob))
	}

	if [4]byte(blob[0:4]) != blobMagic {
		return Header{}, nil, errors.New("payload blob has a bad magic").
			WithType(ErrTypeInvalidPayload)
	}

	order, err := byteOrder(blob[4])
	if err != nil {
		return Header{}, nil, err
	}

	if blob[5] != blobVersion {
		return Header{}, nil, errors.New("unsupported payload blob version").
			WithType(ErrTypeInvalidPayload).
			WithTag("version", blob[5])
	}

	h := Header{
		Kind: Kind(blob[6]),
		Pos: cell.Pos{
			X: int32(order.Uint32(blob[8:])),
			Y: int32(order.Uint32(blob[12:])),
		},
		MinX:        math.Float32frombits(order.Uint32(blob[16:])),
		MinY:        math.Float32frombits(order.Uint32(blob[20:])),
		MinZ:        math.Float32frombits(order.Uint32(blob[24:])),
		MaxX:        math.Float32frombits(order.Uint32(blob[28:])),
		MaxY:        math.Float32frombits(order.Uint32(blob[32:])),
		MaxZ:        math.Float32frombits(order.Uint32(blob[36:])),
		VertexCount: order.Uint32(blob[40:]),
		EdgeCount:   order.Uint32(blob[44:]),
	}

	if expected := blobSize(int(h.VertexCount), int(h.EdgeCount)); len(blob) != expected {
		return Header{}, nil, errors.New("payload blob size mismatch").
			WithType(ErrTypeInvalidPayload).
			WithTag("size", len(blob)).
			WithTag("expected_size", expected)
	}
	return h, order, nil
}

// SwapEndianness converts a blob in place to the opposite byte order. It is
// used when loading data generated on a platform of the other endianness.
func SwapEndianness(blob []byte) error {
	h, order, err := DecodeHeader(blob)
	if err != nil {
		return err
	}

	swapWords(blob[8:headerSize])

	vc := int(h.VertexCount)
	off := headerSize
	swapWords(blob[off : off+vc*vertexSize])
	off += vc*vertexSize + align4(vc)
	swapWords(blob[off : off+int(h.EdgeCount)*edgeSize])

	if order == binary.ByteOrder(binary.LittleEndian) {
		blob[4] = bigEndianID
	} else {
		blob[4] = littleEndianID
	}
	return nil
}

// ByteOrder returns the byte order a blob is written in.
func ByteOrder(blob []byte) (binary.ByteOrder, error) {
	if len(blob) < headerSize {
		return nil, errors.New("payload blob is too short").
			WithType(ErrTypeInvalidPayload).
			WithTag("size", len(blob))
	}
	return byteOrder(blob[4])
}

func byteOrder(id byte) (binary.ByteOrder, error) {
	switch id {
	case littleEndianID:
		return binary.LittleEndian, nil
	case bigEndianID:
		return binary.BigEndian, nil
	default:
		return nil, errors.New("unknown payload byte order").
			WithType(ErrTypeInvalidPayload).
			WithTag("marker", id)
	}
}

func orderID(order binary.ByteOrder) byte {
	if order == binary.ByteOrder(binary.BigEndian) {
		return bigEndianID
	}
	return littleEndianID
}

func swapWords(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
	}
}

func blobSize(vertexCount, edgeCount int) int {
	return headerSize + vertexCount*vertexSize + align4(vertexCount) + edgeCount*edgeSize
}

func align4(n int) int {
	return (n + 3) &^ 3
}

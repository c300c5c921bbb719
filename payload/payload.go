// Package payload holds the immutable cell data produced by the offline
// generation pipeline and its binary blob format.
package payload

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
)

const (
	ErrTypeInvalidPayload = "invalid_payload"
)

// Kind tells which runtime database a cell payload belongs to.
type Kind uint8

const (
	KindNavMesh Kind = iota + 1
	KindGraph
)

func (k Kind) String() string {
	switch k {
	case KindNavMesh:
		return "navmesh"
	case KindGraph:
		return "graph"
	default:
		return "unknown"
	}
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "navmesh":
		return KindNavMesh, nil
	case "graph":
		return KindGraph, nil
	default:
		return 0, errors.New("unknown payload kind").
			WithType(ErrTypeInvalidPayload).
			WithTag("kind", name)
	}
}

type Vertex struct {
	X float32
	Y float32
	Z float32
}

type Edge struct {
	Start uint32
	End   uint32
}

// Header is the typed part of a payload that the runtime looks at without
// decoding the geometry.
type Header struct {
	Kind        Kind
	Pos         cell.Pos
	MinX        float32
	MinY        float32
	MinZ        float32
	MaxX        float32
	MaxY        float32
	MaxZ        float32
	VertexCount uint32
	EdgeCount   uint32
}

// Cell is a read-only cell payload. It is never mutated once built and may be
// shared by several active cell records.
type Cell struct {
	Header

	Vertices []Vertex
	Terrain  []uint8
	Edges    []Edge
}

// New builds a payload and computes its header. A nil terrain slice is
// treated as all-zero terrain types.
func New(kind Kind, pos cell.Pos, vertices []Vertex, terrain []uint8, edges []Edge) (*Cell, error) {
	if terrain == nil {
		terrain = make([]uint8, len(vertices))
	}

	c := &Cell{
		Header: Header{
			Kind:        kind,
			Pos:         pos,
			VertexCount: uint32(len(vertices)),
			EdgeCount:   uint32(len(edges)),
		},
		Vertices: vertices,
		Terrain:  terrain,
		Edges:    edges,
	}
	c.computeBounds()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the payload is self-consistent.
func (c *Cell) Validate() error {
	if c.Kind != KindNavMesh && c.Kind != KindGraph {
		return errors.New("unknown payload kind").
			WithType(ErrTypeInvalidPayload).
			WithTag("kind", uint8(c.Kind))
	}

	if int(c.VertexCount) != len(c.Vertices) || int(c.EdgeCount) != len(c.Edges) {
		return errors.New("payload header counts mismatch").
			WithType(ErrTypeInvalidPayload).
			WithTag("pos", c.Pos.String()).
			WithTag("vertex_count", c.VertexCount).
			WithTag("edge_count", c.EdgeCount)
	}

	if len(c.Terrain) != len(c.Vertices) {
		return errors.New("terrain types do not match vertices").
			WithType(ErrTypeInvalidPayload).
			WithTag("pos", c.Pos.String())
	}

	for i, e := range c.Edges {
		if e.Start >= c.VertexCount || e.End >= c.VertexCount {
			return errors.New("edge references an unknown vertex").
				WithType(ErrTypeInvalidPayload).
				WithTag("pos", c.Pos.String()).
				WithTag("edge", i)
		}
	}
	return nil
}

// EdgeVertices returns the two end vertices of edge i.
func (c *Cell) EdgeVertices(i uint32) (Vertex, Vertex) {
	e := c.Edges[i]
	return c.Vertices[e.Start], c.Vertices[e.End]
}

func (c *Cell) computeBounds() {
	if len(c.Vertices) == 0 {
		c.MinX, c.MinY, c.MinZ = 0, 0, 0
		c.MaxX, c.MaxY, c.MaxZ = 0, 0, 0
		return
	}

	c.MinX, c.MinY, c.MinZ = math.MaxFloat32, math.MaxFloat32, math.MaxFloat32
	c.MaxX, c.MaxY, c.MaxZ = -math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32
	for _, v := range c.Vertices {
		c.MinX = min(c.MinX, v.X)
		c.MinY = min(c.MinY, v.Y)
		c.MinZ = min(c.MinZ, v.Z)
		c.MaxX = max(c.MaxX, v.X)
		c.MaxY = max(c.MaxY, v.Y)
		c.MaxZ = max(c.MaxZ, v.Z)
	}
}

package cellgrid

import (
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
)

// InvalidSearchIndex is the search index of a vertex that is not active.
const InvalidSearchIndex = ^uint32(0)

// State is the stitching state of an active cell record.
type State uint8

const (
	Unstitched State = iota
	Stitched
)

func (s State) String() string {
	if s == Stitched {
		return "stitched"
	}
	return "unstitched"
}

type VertexData struct {
	SearchIndex uint32
}

type EdgeData struct {
	// The number of edge-lock volumes currently locking the edge.
	LockCount uint16
}

// Link pairs a local vertex or edge index with the index of the matching
// feature in the active neighbour cell of a direction.
type Link struct {
	Local  uint32
	Remote uint32
}

// ActiveCell is the runtime record wrapping one loaded cell payload. It owns
// its side tables and neighbour links; the payload is shared and read-only.
//
// Records are created and mutated by the grid only.
type ActiveCell struct {
	payload *payload.Cell
	sector  *SectorReference
	index   int

	state  State
	active bool

	vertexData []VertexData
	edgeData   []EdgeData
	links      [cell.DirectionCount][]Link
	edgeLinks  [cell.DirectionCount][]Link
}

func newActiveCell(p *payload.Cell, ref *SectorReference, index int) *ActiveCell {
	c := &ActiveCell{
		payload:    p,
		sector:     ref,
		index:      index,
		vertexData: make([]VertexData, p.VertexCount),
		edgeData:   make([]EdgeData, p.EdgeCount),
	}
	for i := range c.vertexData {
		c.vertexData[i].SearchIndex = InvalidSearchIndex
	}
	return c
}

func (c *ActiveCell) Pos() cell.Pos {
	return c.payload.Pos
}

func (c *ActiveCell) Payload() *payload.Cell {
	return c.payload
}

func (c *ActiveCell) State() State {
	return c.state
}

// IsActive reports whether the record is the one serving queries at its slot.
func (c *ActiveCell) IsActive() bool {
	return c.active
}

// Sector returns the reference of the sector the record was loaded from.
func (c *ActiveCell) Sector() *SectorReference {
	return c.sector
}

// Index returns the position of the record within its sector.
func (c *ActiveCell) Index() int {
	return c.index
}

func (c *ActiveCell) VertexCount() uint32 {
	return c.payload.VertexCount
}

func (c *ActiveCell) EdgeCount() uint32 {
	return c.payload.EdgeCount
}

// VertexData returns the side table entry of vertex i. It panics when i is
// out of range.
func (c *ActiveCell) VertexData(i uint32) *VertexData {
	return &c.vertexData[i]
}

// EdgeData returns the side table entry of edge i. It panics when i is out of
// range.
func (c *ActiveCell) EdgeData(i uint32) *EdgeData {
	return &c.edgeData[i]
}

func (c *ActiveCell) IsEdgeLocked(i uint32) bool {
	return c.edgeData[i].LockCount > 0
}

// Links returns the vertex links toward the active neighbour in direction d.
// The returned slice must not be modified.
func (c *ActiveCell) Links(d cell.Direction) []Link {
	return c.links[d]
}

// EdgeLinks returns the edge links toward the active neighbour in direction
// d. The returned slice must not be modified.
func (c *ActiveCell) EdgeLinks(d cell.Direction) []Link {
	return c.edgeLinks[d]
}

// LinkedVertex returns the neighbour vertex index vertex i is linked to in
// direction d.
func (c *ActiveCell) LinkedVertex(d cell.Direction, i uint32) (uint32, bool) {
	for _, l := range c.links[d] {
		if l.Local == i {
			return l.Remote, true
		}
	}
	return 0, false
}

func (c *ActiveCell) linkCount() int {
	n := 0
	for d := range c.links {
		n += len(c.links[d]) + len(c.edgeLinks[d])
	}
	return n
}

func (c *ActiveCell) clearLinks(d cell.Direction) {
	c.links[d] = nil
	c.edgeLinks[d] = nil
}

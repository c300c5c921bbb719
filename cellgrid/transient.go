package cellgrid

import "github.com/aukilabs/navgrid/payload"

// Transient pointers have the shape of safe handles without the user
// counting. They are meant for the inner loops of queries and must not be
// kept past the frame they were obtained in.

type CellPtr struct {
	Cell *ActiveCell
}

// IsValid reports whether the pointed record is still the active one at its
// slot. It must only be called within the frame the pointer was obtained in.
func (p CellPtr) IsValid() bool {
	return p.Cell != nil && p.Cell.active
}

// Safe returns a safe handle on the pointed cell.
func (p CellPtr) Safe() CellHandle {
	if p.Cell == nil {
		return CellHandle{}
	}
	return NewCellHandle(p.Cell.sector, p.Cell.index)
}

// Vertex returns a pointer to vertex i of the cell.
func (p CellPtr) Vertex(i uint32) VertexPtr {
	return VertexPtr{Cell: p.Cell, Vertex: i}
}

// Edge returns a pointer to edge i of the cell.
func (p CellPtr) Edge(i uint32) EdgePtr {
	return EdgePtr{Cell: p.Cell, Edge: i}
}

type VertexPtr struct {
	Cell   *ActiveCell
	Vertex uint32
}

func (p VertexPtr) IsValid() bool {
	return p.Cell != nil && p.Cell.active && p.Vertex < p.Cell.VertexCount()
}

func (p VertexPtr) Safe() VertexHandle {
	if p.Cell == nil {
		return VertexHandle{}
	}
	return NewVertexHandle(p.Cell.sector, p.Cell.index, p.Vertex)
}

func (p VertexPtr) Position() payload.Vertex {
	return p.Cell.payload.Vertices[p.Vertex]
}

func (p VertexPtr) TerrainType() uint8 {
	return p.Cell.payload.Terrain[p.Vertex]
}

func (p VertexPtr) SearchIndex() uint32 {
	return p.Cell.vertexData[p.Vertex].SearchIndex
}

type EdgePtr struct {
	Cell *ActiveCell
	Edge uint32
}

func (p EdgePtr) IsValid() bool {
	return p.Cell != nil && p.Cell.active && p.Edge < p.Cell.EdgeCount()
}

func (p EdgePtr) Safe() EdgeHandle {
	if p.Cell == nil {
		return EdgeHandle{}
	}
	return NewEdgeHandle(p.Cell.sector, p.Cell.index, p.Edge)
}

func (p EdgePtr) Start() VertexPtr {
	return VertexPtr{Cell: p.Cell, Vertex: p.Cell.payload.Edges[p.Edge].Start}
}

func (p EdgePtr) End() VertexPtr {
	return VertexPtr{Cell: p.Cell, Vertex: p.Cell.payload.Edges[p.Edge].End}
}

func (p EdgePtr) IsLocked() bool {
	return p.Cell.IsEdgeLocked(p.Edge)
}

package cellgrid

// Safe handles let callers keep a reference to a sector, cell, vertex or edge
// across frames. Validity is derived again on every IsValid call, so a handle
// captured before its cell was removed or superseded reports invalid instead
// of reaching a dropped record.
//
// Every handle holds one user of its sector reference. Copy takes another
// user, Invalidate gives it back. A handle whose sector was removed gives its
// user back on the first failed IsValid call.
//
// Handles must only be duplicated with Copy. A plain assignment shares the
// user of the original, so invalidating both copies releases a user owned by
// another holder. Pass handles by pointer.

// SectorHandle is a safe handle on an inserted sector. Use Copy to duplicate
// it.
type SectorHandle struct {
	ref *SectorReference
}

// NewSectorHandle returns a handle on ref. The handle is invalid when ref is
// nil or no longer loaded.
func NewSectorHandle(ref *SectorReference) SectorHandle {
	if !ref.IsLoaded() {
		return SectorHandle{}
	}
	ref.acquire()
	return SectorHandle{ref: ref}
}

// Copy returns another handle on the same sector.
func (h *SectorHandle) Copy() SectorHandle {
	if h.ref != nil {
		h.ref.acquire()
	}
	return SectorHandle{ref: h.ref}
}

// Invalidate releases the handle.
func (h *SectorHandle) Invalidate() {
	if h.ref != nil {
		h.ref.release()
		h.ref = nil
	}
}

func (h *SectorHandle) IsValid() bool {
	if h.ref == nil {
		return false
	}
	if h.ref.loaded {
		return true
	}
	h.Invalidate()
	return false
}

// Reference returns the sector reference the handle holds, or nil once the
// handle was invalidated.
func (h *SectorHandle) Reference() *SectorReference {
	return h.ref
}

func (h SectorHandle) Equal(o SectorHandle) bool {
	return h.ref == o.ref
}

// Less orders handles by sector identity. Released handles come first.
func (h SectorHandle) Less(o SectorHandle) bool {
	switch {
	case h.ref == o.ref:
		return false
	case h.ref == nil:
		return true
	case o.ref == nil:
		return false
	}
	return h.ref.identity.Less(o.ref.identity)
}

// CellHandle is a safe handle on one cell of a sector. It is valid while the
// sector is loaded and the cell is the active one at its slot.
type CellHandle struct {
	sector SectorHandle
	cell   int
}

func NewCellHandle(ref *SectorReference, cellIndex int) CellHandle {
	return CellHandle{
		sector: NewSectorHandle(ref),
		cell:   cellIndex,
	}
}

func (h *CellHandle) Copy() CellHandle {
	return CellHandle{
		sector: h.sector.Copy(),
		cell:   h.cell,
	}
}

func (h *CellHandle) Invalidate() {
	h.sector.Invalidate()
}

func (h *CellHandle) IsValid() bool {
	if !h.sector.IsValid() {
		return false
	}
	c := h.sector.ref.Cell(h.cell)
	return c != nil && c.active
}

// Sector returns the sector handle the cell handle is built on.
func (h *CellHandle) Sector() *SectorHandle {
	return &h.sector
}

func (h CellHandle) CellIndex() int {
	return h.cell
}

// Transient returns the transient pointer to the cell, or a nil pointer when
// the handle is not valid.
func (h *CellHandle) Transient() CellPtr {
	if !h.IsValid() {
		return CellPtr{}
	}
	return CellPtr{Cell: h.sector.ref.cells[h.cell]}
}

// Unsafe returns the record without validating the handle. The handle must
// have been validated within the current frame.
func (h *CellHandle) Unsafe() *ActiveCell {
	return h.sector.ref.cells[h.cell]
}

func (h CellHandle) Equal(o CellHandle) bool {
	return h.sector.Equal(o.sector) && h.cell == o.cell
}

func (h CellHandle) Less(o CellHandle) bool {
	if !h.sector.Equal(o.sector) {
		return h.sector.Less(o.sector)
	}
	return h.cell < o.cell
}

// VertexHandle is a safe handle on one vertex of a cell.
type VertexHandle struct {
	cell   CellHandle
	vertex uint32
}

func NewVertexHandle(ref *SectorReference, cellIndex int, vertex uint32) VertexHandle {
	return VertexHandle{
		cell:   NewCellHandle(ref, cellIndex),
		vertex: vertex,
	}
}

func (h *VertexHandle) Copy() VertexHandle {
	return VertexHandle{
		cell:   h.cell.Copy(),
		vertex: h.vertex,
	}
}

func (h *VertexHandle) Invalidate() {
	h.cell.Invalidate()
}

func (h *VertexHandle) IsValid() bool {
	return h.cell.IsValid() && h.vertex < h.cell.Unsafe().VertexCount()
}

func (h *VertexHandle) Cell() *CellHandle {
	return &h.cell
}

func (h VertexHandle) VertexIndex() uint32 {
	return h.vertex
}

func (h *VertexHandle) Transient() VertexPtr {
	if !h.IsValid() {
		return VertexPtr{}
	}
	return VertexPtr{Cell: h.cell.Unsafe(), Vertex: h.vertex}
}

func (h *VertexHandle) Unsafe() VertexPtr {
	return VertexPtr{Cell: h.cell.Unsafe(), Vertex: h.vertex}
}

func (h VertexHandle) Equal(o VertexHandle) bool {
	return h.cell.Equal(o.cell) && h.vertex == o.vertex
}

func (h VertexHandle) Less(o VertexHandle) bool {
	if !h.cell.Equal(o.cell) {
		return h.cell.Less(o.cell)
	}
	return h.vertex < o.vertex
}

// EdgeHandle is a safe handle on one edge of a cell.
type EdgeHandle struct {
	cell CellHandle
	edge uint32
}

func NewEdgeHandle(ref *SectorReference, cellIndex int, edge uint32) EdgeHandle {
	return EdgeHandle{
		cell: NewCellHandle(ref, cellIndex),
		edge: edge,
	}
}

func (h *EdgeHandle) Copy() EdgeHandle {
	return EdgeHandle{
		cell: h.cell.Copy(),
		edge: h.edge,
	}
}

func (h *EdgeHandle) Invalidate() {
	h.cell.Invalidate()
}

func (h *EdgeHandle) IsValid() bool {
	return h.cell.IsValid() && h.edge < h.cell.Unsafe().EdgeCount()
}

func (h *EdgeHandle) Cell() *CellHandle {
	return &h.cell
}

func (h EdgeHandle) EdgeIndex() uint32 {
	return h.edge
}

func (h *EdgeHandle) Transient() EdgePtr {
	if !h.IsValid() {
		return EdgePtr{}
	}
	return EdgePtr{Cell: h.cell.Unsafe(), Edge: h.edge}
}

func (h *EdgeHandle) Unsafe() EdgePtr {
	return EdgePtr{Cell: h.cell.Unsafe(), Edge: h.edge}
}

func (h EdgeHandle) Equal(o EdgeHandle) bool {
	return h.cell.Equal(o.cell) && h.edge == o.edge
}

func (h EdgeHandle) Less(o EdgeHandle) bool {
	if !h.cell.Equal(o.cell) {
		return h.cell.Less(o.cell)
	}
	return h.edge < o.edge
}

package cellgrid

import (
	"github.com/aukilabs/navgrid/payload"
	"github.com/aukilabs/navgrid/sector"
)

// SectorReference stands for the active cell records of one inserted sector.
// It is the anchor of every safe handle.
//
// Once its sector is removed the reference is no longer loaded and its
// records are dropped, but the reference itself stays around as a tombstone
// until every handle built on it has been invalidated.
type SectorReference struct {
	identity sector.Identity
	kind     payload.Kind
	cells    []*ActiveCell
	users    int
	loaded   bool
	released bool
	grid     *Grid
}

func newSectorReference(g *Grid, s *sector.Sector) *SectorReference {
	ref := &SectorReference{
		identity: s.Identity,
		kind:     s.Kind,
		cells:    make([]*ActiveCell, len(s.Cells)),
		loaded:   true,
		grid:     g,
	}
	for i, p := range s.Cells {
		ref.cells[i] = newActiveCell(p, ref, i)
	}
	return ref
}

func (r *SectorReference) Identity() sector.Identity {
	return r.identity
}

// IsLoaded reports whether the sector is still inserted in its grid.
func (r *SectorReference) IsLoaded() bool {
	return r != nil && r.loaded
}

// IsReleased reports whether the sector was removed and every user let go of
// the reference.
func (r *SectorReference) IsReleased() bool {
	return r.released
}

// Users returns the number of safe handles currently holding the reference.
func (r *SectorReference) Users() int {
	return r.users
}

// CellCount returns the number of records of the sector. It is zero once the
// sector is removed.
func (r *SectorReference) CellCount() int {
	return len(r.cells)
}

// Cell returns the record at index i, or nil when i is out of range or the
// sector is removed.
func (r *SectorReference) Cell(i int) *ActiveCell {
	if i < 0 || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}

func (r *SectorReference) acquire() {
	r.users++
}

func (r *SectorReference) release() {
	if r.users > 0 {
		r.users--
	}
	r.releaseIfUnused()
}

func (r *SectorReference) unload() {
	r.loaded = false
	r.cells = nil
	r.releaseIfUnused()
}

func (r *SectorReference) releaseIfUnused() {
	if r.loaded || r.released || r.users > 0 {
		return
	}
	r.released = true
	if r.grid != nil {
		r.grid.forgetTombstone(r)
	}
}

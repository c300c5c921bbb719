package cellgrid

import "github.com/RoaringBitmap/roaring/v2"

// A sequential id generator. Reused ids are handed out lowest first.
type sequentialIDGenerator struct {
	currentID   uint32
	reusableIDs *roaring.Bitmap
}

// New returns a sequential id.
func (g *sequentialIDGenerator) New() uint32 {
	if g.reusableIDs != nil && !g.reusableIDs.IsEmpty() {
		id := g.reusableIDs.Minimum()
		g.reusableIDs.Remove(id)
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as reusable. Reusable ids are returned in priority
// when using New.
func (g *sequentialIDGenerator) Reuse(id uint32) {
	if id == 0 || id > g.currentID {
		return
	}
	if g.reusableIDs == nil {
		g.reusableIDs = roaring.New()
	}
	g.reusableIDs.Add(id)
}

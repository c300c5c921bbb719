package cellgrid

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// SearchIndexAllocator hands out compact vertex ids that a path search can use
// as direct indices into its open and closed lists. Recycled ids are handed
// out again lowest first, before the high-water mark grows.
type SearchIndexAllocator struct {
	free      *roaring.Bitmap
	highWater uint32
	inUse     int
}

func NewSearchIndexAllocator() *SearchIndexAllocator {
	return &SearchIndexAllocator{
		free: roaring.New(),
	}
}

// Assign gives a search index to every vertex of c.
func (a *SearchIndexAllocator) Assign(c *ActiveCell) {
	for i := range c.vertexData {
		c.vertexData[i].SearchIndex = a.next()
	}
}

// Recycle returns the search indices of c to the free set.
func (a *SearchIndexAllocator) Recycle(c *ActiveCell) {
	for i := range c.vertexData {
		id := c.vertexData[i].SearchIndex
		if id == InvalidSearchIndex {
			continue
		}
		a.free.Add(id)
		a.inUse--
		c.vertexData[i].SearchIndex = InvalidSearchIndex
	}
}

// HighWater returns the size a search must allocate its per-vertex arrays
// with.
func (a *SearchIndexAllocator) HighWater() uint32 {
	return a.highWater
}

// InUse returns the number of ids currently assigned.
func (a *SearchIndexAllocator) InUse() int {
	return a.inUse
}

// Free returns the number of recycled ids waiting to be reused.
func (a *SearchIndexAllocator) Free() uint64 {
	return a.free.GetCardinality()
}

// Reset forgets every assigned and recycled id.
func (a *SearchIndexAllocator) Reset() {
	a.free.Clear()
	a.highWater = 0
	a.inUse = 0
}

func (a *SearchIndexAllocator) next() uint32 {
	a.inUse++
	if !a.free.IsEmpty() {
		id := a.free.Minimum()
		a.free.Remove(id)
		return id
	}

	id := a.highWater
	a.highWater++
	return id
}

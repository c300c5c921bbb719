package cellgrid

import (
	"math"

	"github.com/aukilabs/navgrid/cell"
)

// ActiveLookup returns the active cell at a coordinate, or nil.
type ActiveLookup interface {
	Active(p cell.Pos) *ActiveCell
}

// Stitcher links the border vertices and edges of adjacent active cells.
//
// A vertex lies on a border when its distance to the border line is within
// the lateral tolerance. Two border vertices of facing cells match when their
// along-border coordinates are within the lateral tolerance and their
// altitudes within the altitude tolerance, both bounds inclusive. Every
// border vertex links to its closest match; vertices without one stay
// unlinked.
//
// A pair of cells is always matched from the west or south cell, so the
// resulting links do not depend on which of the two was stitched last.
type Stitcher struct {
	altitudeTolerance float64
	lateralTolerance  float64
	stitchEdges       bool
}

func NewStitcher(c Config) *Stitcher {
	return &Stitcher{
		altitudeTolerance: float64(c.AltitudeTolerance),
		lateralTolerance:  float64(c.LateralTolerance),
		stitchEdges:       c.StitchEdges,
	}
}

// Stitch links c with every active neighbour, replacing previous links, and
// marks it stitched. It returns the number of vertex links created.
func (s *Stitcher) Stitch(cells ActiveLookup, rulers cell.Rulers, c *ActiveCell) int {
	links := 0
	for _, d := range cell.Directions {
		c.clearLinks(d)

		n := cells.Active(c.Pos().Neighbor(d))
		if n == nil {
			continue
		}
		n.clearLinks(d.Opposite())

		if d == cell.East || d == cell.North {
			links += s.link(rulers, c, n, d)
		} else {
			links += s.link(rulers, n, c, d.Opposite())
		}
	}
	c.state = Stitched
	return links
}

// Unstitch clears the links of c and the back links its neighbours hold
// toward it. c must be the active cell of its slot.
func (s *Stitcher) Unstitch(cells ActiveLookup, c *ActiveCell) {
	for _, d := range cell.Directions {
		c.clearLinks(d)
		if n := cells.Active(c.Pos().Neighbor(d)); n != nil {
			n.clearLinks(d.Opposite())
		}
	}
	c.state = Unstitched
}

type borderVertex struct {
	index uint32
	along float64
	z     float64
}

// link matches a with its east or north neighbour b.
func (s *Stitcher) link(rulers cell.Rulers, a, b *ActiveCell, d cell.Direction) int {
	_, _, maxX, maxY := rulers.WorldBounds(a.Pos())
	border := float64(maxX)
	if d == cell.North {
		border = float64(maxY)
	}

	aBorder := s.borderVertices(a, d, border)
	bBorder := s.borderVertices(b, d, border)
	if len(aBorder) == 0 || len(bBorder) == 0 {
		return 0
	}

	opposite := d.Opposite()
	matches := make(map[uint32]uint32, len(aBorder))

	for _, va := range aBorder {
		best := -1
		bestAlong, bestZ := math.Inf(1), math.Inf(1)

		for i, vb := range bBorder {
			dAlong := math.Abs(va.along - vb.along)
			dZ := math.Abs(va.z - vb.z)
			if dAlong > s.lateralTolerance || dZ > s.altitudeTolerance {
				continue
			}
			if dAlong < bestAlong || (dAlong == bestAlong && dZ < bestZ) {
				best, bestAlong, bestZ = i, dAlong, dZ
			}
		}
		if best < 0 {
			continue
		}

		vb := bBorder[best]
		matches[va.index] = vb.index
		a.links[d] = append(a.links[d], Link{Local: va.index, Remote: vb.index})
		b.links[opposite] = append(b.links[opposite], Link{Local: vb.index, Remote: va.index})
	}

	if s.stitchEdges && len(matches) > 1 {
		s.linkEdges(a, b, d, matches)
	}
	return len(matches)
}

// linkEdges links a border edge of a with the border edge of b joining the
// vertices its two end points matched.
func (s *Stitcher) linkEdges(a, b *ActiveCell, d cell.Direction, matches map[uint32]uint32) {
	type endpoints struct{ lo, hi uint32 }
	key := func(x, y uint32) endpoints {
		if x > y {
			x, y = y, x
		}
		return endpoints{lo: x, hi: y}
	}

	bEdges := make(map[endpoints]uint32)
	for i, e := range b.payload.Edges {
		bEdges[key(e.Start, e.End)] = uint32(i)
	}

	opposite := d.Opposite()
	for i, e := range a.payload.Edges {
		bs, ok := matches[e.Start]
		if !ok {
			continue
		}
		be, ok := matches[e.End]
		if !ok || bs == be {
			continue
		}

		j, ok := bEdges[key(bs, be)]
		if !ok {
			continue
		}
		a.edgeLinks[d] = append(a.edgeLinks[d], Link{Local: uint32(i), Remote: j})
		b.edgeLinks[opposite] = append(b.edgeLinks[opposite], Link{Local: j, Remote: uint32(i)})
	}
}

func (s *Stitcher) borderVertices(c *ActiveCell, d cell.Direction, border float64) []borderVertex {
	var vertices []borderVertex
	for i, v := range c.payload.Vertices {
		perpendicular, along := float64(v.X), float64(v.Y)
		if d == cell.North {
			perpendicular, along = float64(v.Y), float64(v.X)
		}

		if math.Abs(perpendicular-border) > s.lateralTolerance {
			continue
		}
		vertices = append(vertices, borderVertex{
			index: uint32(i),
			along: along,
			z:     float64(v.Z),
		})
	}
	return vertices
}

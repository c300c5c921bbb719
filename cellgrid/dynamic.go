package cellgrid

import (
	"math"

	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
)

// Rect is an axis aligned world rectangle on the ground plane.
type Rect struct {
	MinX float32
	MinY float32
	MaxX float32
	MaxY float32
}

// EdgeLockVolume is a volume that locks the edges it overlaps, for example a
// closed door or an obstacle spawned at runtime.
type EdgeLockVolume interface {
	// Bounds returns the ground footprint of the volume, used to route it to
	// the slots it overlaps.
	Bounds() Rect

	// LocksEdge reports whether the edge going from a to b is locked by the
	// volume.
	LocksEdge(a, b payload.Vertex) bool
}

// BoxVolume is an axis aligned box locking every edge that crosses it.
type BoxVolume struct {
	Min payload.Vertex
	Max payload.Vertex
}

func NewBoxVolume(min, max payload.Vertex) *BoxVolume {
	return &BoxVolume{Min: min, Max: max}
}

func (v *BoxVolume) Bounds() Rect {
	return Rect{MinX: v.Min.X, MinY: v.Min.Y, MaxX: v.Max.X, MaxY: v.Max.Y}
}

// LocksEdge reports whether the segment [a, b] intersects the box.
func (v *BoxVolume) LocksEdge(a, b payload.Vertex) bool {
	from := [3]float64{float64(a.X), float64(a.Y), float64(a.Z)}
	to := [3]float64{float64(b.X), float64(b.Y), float64(b.Z)}
	lo := [3]float64{float64(v.Min.X), float64(v.Min.Y), float64(v.Min.Z)}
	hi := [3]float64{float64(v.Max.X), float64(v.Max.Y), float64(v.Max.Z)}

	tMin, tMax := 0.0, 1.0
	for axis := 0; axis < 3; axis++ {
		d := to[axis] - from[axis]
		if d == 0 {
			if from[axis] < lo[axis] || from[axis] > hi[axis] {
				return false
			}
			continue
		}

		t0 := (lo[axis] - from[axis]) / d
		t1 := (hi[axis] - from[axis]) / d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math.Max(tMin, t0)
		tMax = math.Min(tMax, t1)
		if tMin > tMax {
			return false
		}
	}
	return true
}

// VertexConnection joins a vertex of an external layer, such as a secondary
// graph built at runtime, to the closest vertex of the active cell of a slot.
type VertexConnection struct {
	// The external vertex.
	Vertex VertexPtr

	// The vertex of the slot active cell the connection is linked to. Its
	// Cell is nil while the slot has no active cell.
	Linked VertexPtr
}

func (c VertexConnection) IsLinked() bool {
	return c.Linked.Cell != nil
}

// AddVertexConnection attaches an externally built vertex connection to the
// slot at pos and links it to the slot active cell. It returns false when pos
// is outside the grid or v points to no cell.
func (g *Grid) AddVertexConnection(pos cell.Pos, v VertexPtr) bool {
	s := g.slot(pos)
	if s == nil || v.Cell == nil {
		return false
	}

	c := VertexConnection{Vertex: v}
	if s.active != nil {
		c.Linked = closestVertex(s.active, v.Position())
	}
	s.connections.Push(g.pools.Connections, c)
	return true
}

// RemoveVertexConnection detaches a vertex connection from the slot at pos.
func (g *Grid) RemoveVertexConnection(pos cell.Pos, v VertexPtr) bool {
	s := g.slot(pos)
	if s == nil {
		return false
	}
	return s.connections.Remove(g.pools.Connections, func(c VertexConnection) bool {
		return c.Vertex == v
	})
}

// VertexConnections returns the vertex connections attached to the slot at
// pos.
func (g *Grid) VertexConnections(pos cell.Pos) []VertexConnection {
	s := g.slot(pos)
	if s == nil {
		return nil
	}
	return s.connections.Values(g.pools.Connections)
}

// AddEdgeLockVolumeAt attaches v to the slot at pos and locks the edges of
// its active cell. It returns false when pos is outside the grid.
func (g *Grid) AddEdgeLockVolumeAt(v EdgeLockVolume, pos cell.Pos) bool {
	s := g.slot(pos)
	if s == nil {
		return false
	}

	s.volumes.Push(g.pools.Volumes, v)
	if s.active != nil {
		lockEdges(s.active, v)
	}
	return true
}

// RemoveEdgeLockVolumeFrom detaches v from the slot at pos and unlocks the
// edges of its active cell.
func (g *Grid) RemoveEdgeLockVolumeFrom(v EdgeLockVolume, pos cell.Pos) bool {
	s := g.slot(pos)
	if s == nil {
		return false
	}

	removed := s.volumes.Remove(g.pools.Volumes, func(o EdgeLockVolume) bool {
		return o == v
	})
	if removed && s.active != nil {
		unlockEdges(s.active, v)
	}
	return removed
}

// AddEdgeLockVolume attaches v to every slot its bounds overlap, including
// slots the grid grows to later on. It returns the number of slots touched.
func (g *Grid) AddEdgeLockVolume(v EdgeLockVolume) int {
	g.routedVolumes = append(g.routedVolumes, v)
	return g.routeVolume(v, g.volumeBox(v).Intersect(g.bounds))
}

// RemoveEdgeLockVolume detaches a volume added with AddEdgeLockVolume. It
// returns the number of slots touched.
func (g *Grid) RemoveEdgeLockVolume(v EdgeLockVolume) int {
	for i, o := range g.routedVolumes {
		if o == v {
			g.routedVolumes = append(g.routedVolumes[:i], g.routedVolumes[i+1:]...)
			break
		}
	}

	n := 0
	g.volumeBox(v).Intersect(g.bounds).ForEach(func(p cell.Pos) {
		if g.RemoveEdgeLockVolumeFrom(v, p) {
			n++
		}
	})
	return n
}

// EdgeLockVolumes returns the volumes attached to the slot at pos.
func (g *Grid) EdgeLockVolumes(pos cell.Pos) []EdgeLockVolume {
	s := g.slot(pos)
	if s == nil {
		return nil
	}
	return s.volumes.Values(g.pools.Volumes)
}

func (g *Grid) routeVolume(v EdgeLockVolume, box cell.Box) int {
	n := 0
	box.ForEach(func(p cell.Pos) {
		if g.AddEdgeLockVolumeAt(v, p) {
			n++
		}
	})
	return n
}

// routeVolumesOnGrowth attaches the routed volumes to the slots gained when
// the grid grew from old to the current bounds.
func (g *Grid) routeVolumesOnGrowth(old cell.Box) {
	for _, v := range g.routedVolumes {
		g.volumeBox(v).Intersect(g.bounds).ForEach(func(p cell.Pos) {
			if !old.IsInside(p) {
				g.AddEdgeLockVolumeAt(v, p)
			}
		})
	}
}

func (g *Grid) volumeBox(v EdgeLockVolume) cell.Box {
	b := v.Bounds()
	return cell.NewBox(
		g.cellPosAt(b.MinX, b.MinY),
		g.cellPosAt(b.MaxX, b.MaxY),
	)
}

// relinkConnections links the connections of the slot to its newly activated
// cell.
func (g *Grid) relinkConnections(s *slot) {
	s.connections.Update(g.pools.Connections, func(c *VertexConnection) {
		c.Linked = closestVertex(s.active, c.Vertex.Position())
	})
}

func (g *Grid) unlinkConnections(s *slot) {
	s.connections.Update(g.pools.Connections, func(c *VertexConnection) {
		c.Linked = VertexPtr{}
	})
}

// closestVertex returns the vertex of c nearest to v, or a nil pointer when c
// has no vertex.
func closestVertex(c *ActiveCell, v payload.Vertex) VertexPtr {
	best := VertexPtr{}
	bestDist := math.Inf(1)
	for i, o := range c.payload.Vertices {
		dx := float64(o.X) - float64(v.X)
		dy := float64(o.Y) - float64(v.Y)
		dz := float64(o.Z) - float64(v.Z)
		if d := dx*dx + dy*dy + dz*dz; d < bestDist {
			best = VertexPtr{Cell: c, Vertex: uint32(i)}
			bestDist = d
		}
	}
	return best
}

// relockEdges applies every volume of the slot to its newly activated cell.
func (g *Grid) relockEdges(s *slot) {
	s.volumes.ForEach(g.pools.Volumes, func(v EdgeLockVolume) {
		lockEdges(s.active, v)
	})
}

func lockEdges(c *ActiveCell, v EdgeLockVolume) {
	p := c.payload
	for i, e := range p.Edges {
		if v.LocksEdge(p.Vertices[e.Start], p.Vertices[e.End]) && c.edgeData[i].LockCount < math.MaxUint16 {
			c.edgeData[i].LockCount++
		}
	}
}

func unlockEdges(c *ActiveCell, v EdgeLockVolume) {
	p := c.payload
	for i, e := range p.Edges {
		if v.LocksEdge(p.Vertices[e.Start], p.Vertices[e.End]) && c.edgeData[i].LockCount > 0 {
			c.edgeData[i].LockCount--
		}
	}
}

func clearEdgeLocks(c *ActiveCell) {
	for i := range c.edgeData {
		c.edgeData[i].LockCount = 0
	}
}

// Package cellgrid implements the runtime cell grid of a navigation database.
//
// The grid owns one slot per cell coordinate of its bounds. Each slot holds
// every loaded record for its coordinate, at most one of them being active.
// Active cells are stitched with their active neighbours so that queries can
// cross cell borders. Callers keep references to cells, vertices and edges
// with safe handles, which stay testable after the referenced data is gone.
//
// A grid is not safe for concurrent use. Mutations and queries must be
// ordered by the caller.
package cellgrid

import (
	"slices"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
	"github.com/aukilabs/navgrid/sector"
)

// Policy tells whether the cells of an inserted sector become active.
type Policy uint8

const (
	// PolicyDeferred inserts the cells without activating them. They may be
	// promoted later when the active cell of their slot is removed.
	PolicyDeferred Policy = iota

	// PolicyActivate activates the cells whose slot has no active cell.
	PolicyActivate

	// PolicySupersede activates every cell, deactivating the current active
	// cell of its slot.
	PolicySupersede
)

func (p Policy) String() string {
	switch p {
	case PolicyDeferred:
		return "deferred"
	case PolicyActivate:
		return "activate"
	case PolicySupersede:
		return "supersede"
	default:
		return "unknown"
	}
}

// ParsePolicy returns the policy with the given name.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range []Policy{PolicyDeferred, PolicyActivate, PolicySupersede} {
		if p.String() == name {
			return p, nil
		}
	}
	return PolicyDeferred, errors.New("unknown activation policy").
		WithType(ErrTypeInvalidConfig).
		WithTag("policy", name)
}

type slot struct {
	versions    []*ActiveCell
	active      *ActiveCell
	connections PoolList[VertexConnection]
	volumes     PoolList[EdgeLockVolume]
}

type sectorKey struct {
	guids     string
	timestamp int64
}

func keyOf(id sector.Identity) sectorKey {
	return sectorKey{
		guids:     id.Key(),
		timestamp: id.Timestamp,
	}
}

// Option customizes a grid.
type Option func(*Grid)

// WithPools makes the grid allocate its dynamic per-slot data from p.
func WithPools(p *Pools) Option {
	return func(g *Grid) {
		g.pools = p
	}
}

// WithActiveSet restricts activation to the sectors covered by s.
func WithActiveSet(s *sector.ActiveSet) Option {
	return func(g *Grid) {
		g.activeSet = s
	}
}

// Grid is the slot buffer of a navigation database.
type Grid struct {
	config    Config
	kind      string
	bounds    cell.Box
	rulers    cell.Rulers
	slots     []slot
	activeSet *sector.ActiveSet

	sectors     map[sectorKey]*SectorReference
	tombstones  map[*SectorReference]struct{}
	activeCount int

	stitcher      *Stitcher
	searchIndices *SearchIndexAllocator
	pools         *Pools
	routedVolumes []EdgeLockVolume

	callbackIDs         sequentialIDGenerator
	activateCallbacks   callbackList
	deactivateCallbacks callbackList
}

// New returns an empty grid.
func New(c Config, options ...Option) (*Grid, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	g := &Grid{
		config:        c,
		kind:          c.Kind.String(),
		bounds:        cell.EmptyBox(),
		rulers:        cell.NewRulers(cell.EmptyBox(), c.CellSize),
		sectors:       make(map[sectorKey]*SectorReference),
		tombstones:    make(map[*SectorReference]struct{}),
		stitcher:      NewStitcher(c),
		searchIndices: NewSearchIndexAllocator(),
	}
	for _, o := range options {
		o(g)
	}
	if g.pools == nil {
		g.pools = NewPools()
	}
	return g, nil
}

func (g *Grid) Config() Config {
	return g.config
}

func (g *Grid) Bounds() cell.Box {
	return g.bounds
}

func (g *Grid) Rulers() cell.Rulers {
	return g.rulers
}

// ActiveSet returns the set restricting activation, or nil.
func (g *Grid) ActiveSet() *sector.ActiveSet {
	return g.activeSet
}

// SearchIndices returns the allocator handing out vertex search indices.
func (g *Grid) SearchIndices() *SearchIndexAllocator {
	return g.searchIndices
}

// Enlarge grows the grid to cover box, keeping every slot content. It is a
// no-op when box is already covered.
func (g *Grid) Enlarge(box cell.Box) error {
	target := g.bounds.Union(box)
	if !target.Valid() || (g.bounds.Valid() && g.bounds.Contains(target)) {
		return nil
	}

	if target.Count() > g.config.MaxSlots {
		return errors.New("grid would exceed its maximum number of slots").
			WithType(ErrTypeGridTooLarge).
			WithTag("kind", g.kind).
			WithTag("bounds", target.String()).
			WithTag("slots", target.Count()).
			WithTag("max_slots", g.config.MaxSlots)
	}

	g.resize(target)
	return nil
}

// resize moves the slots into a buffer laid out over target. Slots outside
// target are dropped and must not hold any record.
func (g *Grid) resize(target cell.Box) {
	old := g.bounds
	oldSlots := g.slots

	var slots []slot
	if target.Valid() {
		slots = make([]slot, target.Count())
	}

	for i := range oldSlots {
		p := old.PosFromIndex(i)
		if target.IsInside(p) {
			slots[target.RowMajorIndex(p)] = oldSlots[i]
			continue
		}
		oldSlots[i].connections.Clear(g.pools.Connections)
		oldSlots[i].volumes.Clear(g.pools.Volumes)
	}

	g.bounds = target
	g.slots = slots
	g.rulers = cell.NewRulers(target, g.config.CellSize)
	g.routeVolumesOnGrowth(old)

	instrumentSlots(g.kind, len(slots)-len(oldSlots))
	logs.WithTag("kind", g.kind).
		WithTag("bounds", target.String()).
		WithTag("slots", len(slots)).
		Debug("grid resized")
}

// InsertSector adds a record for every cell of s and activates them
// according to policy. Either the whole sector is inserted or, on error, the
// grid is left untouched.
//
// When the grid has an active set, cells are only activated if the set
// covers the sector identity.
func (g *Grid) InsertSector(s *sector.Sector, policy Policy) (*SectorReference, error) {
	if s == nil {
		return nil, errors.New("sector is nil").
			WithType(sector.ErrTypeInvalidSector)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Kind != g.config.Kind {
		return nil, errors.New("sector kind does not match grid kind").
			WithType(payload.ErrTypeInvalidPayload).
			WithTag("sector", s.Identity.String()).
			WithTag("sector_kind", s.Kind.String()).
			WithTag("grid_kind", g.kind)
	}

	key := keyOf(s.Identity)
	if _, ok := g.sectors[key]; ok {
		return nil, errors.New("sector is already inserted").
			WithType(ErrTypeSectorAlreadyInserted).
			WithTag("sector", s.Identity.String()).
			WithTag("timestamp", s.Identity.Timestamp)
	}

	box := s.Box()
	if err := g.Enlarge(box); err != nil {
		return nil, errors.New("inserting sector failed").
			WithType(ErrTypeGridTooLarge).
			WithTag("sector", s.Identity.String()).
			Wrap(err)
	}

	ref := newSectorReference(g, s)
	g.sectors[key] = ref

	eligible := policy != PolicyDeferred && g.isEligible(ref)
	var activated []*ActiveCell

	for _, c := range ref.cells {
		sl := g.slot(c.Pos())
		sl.versions = append(sl.versions, c)
		if !eligible {
			continue
		}

		if sl.active != nil {
			if policy != PolicySupersede {
				continue
			}
			g.deactivate(sl)
		}
		g.activate(sl, c)
		activated = append(activated, c)
	}

	if len(activated) != 0 {
		g.UpdateStitchingInBox(box)
		for _, c := range activated {
			g.activateCallbacks.fire(c)
		}
	}

	instrumentSectorOperation(g.kind, "insert", 1)
	logs.WithTag("kind", g.kind).
		WithTag("sector", s.Identity.String()).
		WithTag("policy", policy.String()).
		WithTag("cells", len(ref.cells)).
		WithTag("activated", len(activated)).
		Debug("sector inserted")

	g.debugCheck()
	return ref, nil
}

// RemoveSector drops the records of a sector. Active records are deactivated
// and the first remaining eligible record of their slot is promoted. The
// reference becomes invalid and is released once no handle uses it.
func (g *Grid) RemoveSector(ref *SectorReference) error {
	if ref == nil || ref.grid != g || !ref.loaded {
		return errors.New("sector is not inserted").
			WithType(ErrTypeSectorNotInserted)
	}

	box := cell.EmptyBox()
	var promoted []*ActiveCell

	for _, c := range ref.cells {
		pos := c.Pos()
		box = box.Enlarged(pos)

		sl := g.slot(pos)
		if c.active {
			g.deactivate(sl)
		}
		if i := slices.Index(sl.versions, c); i >= 0 {
			sl.versions = slices.Delete(sl.versions, i, i+1)
		}

		if p := g.promote(sl); p != nil {
			promoted = append(promoted, p)
		}
	}

	delete(g.sectors, keyOf(ref.identity))
	if ref.users > 0 {
		g.tombstones[ref] = struct{}{}
	}
	ref.unload()

	if len(promoted) != 0 {
		g.UpdateStitchingInBox(box)
		for _, c := range promoted {
			g.activateCallbacks.fire(c)
		}
	}

	instrumentSectorOperation(g.kind, "remove", -1)
	logs.WithTag("kind", g.kind).
		WithTag("sector", ref.identity.String()).
		WithTag("promoted", len(promoted)).
		WithTag("users", ref.users).
		Debug("sector removed")

	g.debugCheck()
	return nil
}

// RefreshActivation brings every slot in line with the active set after it
// changed: active cells of sectors no longer covered are deactivated and
// empty slots promote their first eligible record. It returns the number of
// slots whose active cell changed.
func (g *Grid) RefreshActivation() int {
	box := cell.EmptyBox()
	changed := 0
	var promoted []*ActiveCell

	for i := range g.slots {
		sl := &g.slots[i]
		before := sl.active

		if sl.active != nil && !g.isEligible(sl.active.sector) {
			g.deactivate(sl)
		}
		if p := g.promote(sl); p != nil {
			promoted = append(promoted, p)
		}

		if sl.active != before {
			box = box.Enlarged(g.bounds.PosFromIndex(i))
			changed++
		}
	}

	if len(promoted) != 0 {
		g.UpdateStitchingInBox(box)
		for _, c := range promoted {
			g.activateCallbacks.fire(c)
		}
	}

	g.debugCheck()
	return changed
}

// UpdateStitchingInBox stitches again every active cell in box with its
// active neighbours.
func (g *Grid) UpdateStitchingInBox(box cell.Box) {
	links := 0
	box.Intersect(g.bounds).ForEach(func(p cell.Pos) {
		if c := g.Active(p); c != nil {
			links += g.stitcher.Stitch(g, g.rulers, c)
		}
	})
	instrumentStitch(g.kind, links)
}

// Clear removes every inserted sector.
func (g *Grid) Clear() {
	for _, ref := range g.Sectors() {
		if err := g.RemoveSector(ref); err != nil {
			logs.Warn(err)
		}
	}
}

// Reset removes every sector except the ones in keep, then shrinks the slot
// buffer to the bounds of the kept sectors. Dynamic data attached to dropped
// slots is released.
func (g *Grid) Reset(keep []*SectorReference) {
	kept := make(map[*SectorReference]struct{}, len(keep))
	bounds := cell.EmptyBox()
	for _, ref := range keep {
		if ref.IsLoaded() && ref.grid == g {
			kept[ref] = struct{}{}
			for _, c := range ref.cells {
				bounds = bounds.Enlarged(c.Pos())
			}
		}
	}

	for _, ref := range g.Sectors() {
		if _, ok := kept[ref]; ok {
			continue
		}
		if err := g.RemoveSector(ref); err != nil {
			logs.Warn(err)
		}
	}

	if !bounds.Valid() {
		g.searchIndices.Reset()
	}
	g.resize(bounds)
	g.debugCheck()
}

// Sectors returns the inserted sectors ordered by identity.
func (g *Grid) Sectors() []*SectorReference {
	refs := make([]*SectorReference, 0, len(g.sectors))
	for _, ref := range g.sectors {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b *SectorReference) int {
		switch {
		case a.identity.Less(b.identity):
			return -1
		case b.identity.Less(a.identity):
			return 1
		default:
			return 0
		}
	})
	return refs
}

// Sector returns the inserted sector with the given identity.
func (g *Grid) Sector(id sector.Identity) (*SectorReference, error) {
	ref, ok := g.sectors[keyOf(id)]
	if !ok {
		return nil, errors.New("sector not found").
			WithType(ErrTypeNotFound).
			WithTag("sector", id.String()).
			WithTag("timestamp", id.Timestamp)
	}
	return ref, nil
}

// Active returns the active cell at p, or nil when p is outside the grid or
// its slot has no active cell.
func (g *Grid) Active(p cell.Pos) *ActiveCell {
	if s := g.slot(p); s != nil {
		return s.active
	}
	return nil
}

// Cell returns the payload of the active cell at p, or nil.
func (g *Grid) Cell(p cell.Pos) *payload.Cell {
	if c := g.Active(p); c != nil {
		return c.payload
	}
	return nil
}

// IsCellAvailable reports whether a cell is active at p.
func (g *Grid) IsCellAvailable(p cell.Pos) bool {
	return g.Active(p) != nil
}

// Versions returns every record loaded at p in insertion order.
func (g *Grid) Versions(p cell.Pos) []*ActiveCell {
	if s := g.slot(p); s != nil {
		return slices.Clone(s.versions)
	}
	return nil
}

// StitchedNeighbor returns the active neighbour of c in direction d when c is
// linked with it.
func (g *Grid) StitchedNeighbor(c *ActiveCell, d cell.Direction) *ActiveCell {
	if c == nil || !c.active || (len(c.links[d]) == 0 && len(c.edgeLinks[d]) == 0) {
		return nil
	}
	return g.Active(c.Pos().Neighbor(d))
}

// LinkedVertex returns the neighbour vertex v is stitched to in direction d.
func (g *Grid) LinkedVertex(v VertexPtr, d cell.Direction) (VertexPtr, bool) {
	n := g.StitchedNeighbor(v.Cell, d)
	if n == nil {
		return VertexPtr{}, false
	}
	remote, ok := v.Cell.LinkedVertex(d, v.Vertex)
	if !ok {
		return VertexPtr{}, false
	}
	return VertexPtr{Cell: n, Vertex: remote}, true
}

// CellPosAt returns the coordinate of the cell owning the world position
// (x, y), clamped to the grid bounds.
func (g *Grid) CellPosAt(x, y float32) cell.Pos {
	return g.rulers.Clamp(g.cellPosAt(x, y))
}

func (g *Grid) cellPosAt(x, y float32) cell.Pos {
	return g.rulers.Pos(x, y)
}

func (g *Grid) slot(p cell.Pos) *slot {
	if !g.bounds.IsInside(p) {
		return nil
	}
	return &g.slots[g.bounds.RowMajorIndex(p)]
}

func (g *Grid) isEligible(ref *SectorReference) bool {
	return g.activeSet == nil || g.activeSet.Covers(ref.identity)
}

func (g *Grid) activate(sl *slot, c *ActiveCell) {
	c.active = true
	sl.active = c
	g.activeCount++

	g.searchIndices.Assign(c)
	g.relockEdges(sl)
	g.relinkConnections(sl)

	instrumentActiveCells(g.kind, 1)
	instrumentSearchIndexHighWater(g.kind, g.searchIndices.HighWater())
}

func (g *Grid) deactivate(sl *slot) {
	c := sl.active
	g.deactivateCallbacks.fire(c)

	g.stitcher.Unstitch(g, c)
	g.searchIndices.Recycle(c)
	clearEdgeLocks(c)
	g.unlinkConnections(sl)

	c.active = false
	sl.active = nil
	g.activeCount--

	instrumentActiveCells(g.kind, -1)
}

// promote activates the first eligible record of a slot without active cell.
// Stitching and callbacks are left to the caller.
func (g *Grid) promote(sl *slot) *ActiveCell {
	if sl.active != nil {
		return nil
	}
	for _, c := range sl.versions {
		if g.isEligible(c.sector) {
			g.activate(sl, c)
			return c
		}
	}
	return nil
}

func (g *Grid) forgetTombstone(ref *SectorReference) {
	delete(g.tombstones, ref)
}

func (g *Grid) debugCheck() {
	if !g.config.Debug {
		return
	}
	if err := g.CheckInvariants(); err != nil {
		panic(err)
	}
}

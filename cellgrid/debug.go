package cellgrid

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
)

// DebugInfo is a snapshot of the grid state.
type DebugInfo struct {
	Kind                 string `json:"kind"`
	Bounds               string `json:"bounds"`
	Slots                int    `json:"slots"`
	Sectors              int    `json:"sectors"`
	Tombstones           int    `json:"tombstones"`
	LoadedCells          int    `json:"loaded_cells"`
	ActiveCells          int    `json:"active_cells"`
	StitchedCells        int    `json:"stitched_cells"`
	OverlappingSlots     int    `json:"overlapping_slots"`
	Links                int    `json:"links"`
	SearchIndexHighWater uint32 `json:"search_index_high_water"`
	SearchIndicesInUse   int    `json:"search_indices_in_use"`
	EdgeLockVolumes      int    `json:"edge_lock_volumes"`
	VertexConnections    int    `json:"vertex_connections"`
	Callbacks            int    `json:"callbacks"`
}

func (g *Grid) DebugInfo() DebugInfo {
	info := DebugInfo{
		Kind:                 g.kind,
		Bounds:               g.bounds.String(),
		Slots:                len(g.slots),
		Sectors:              len(g.sectors),
		Tombstones:           len(g.tombstones),
		ActiveCells:          g.activeCount,
		SearchIndexHighWater: g.searchIndices.HighWater(),
		SearchIndicesInUse:   g.searchIndices.InUse(),
		EdgeLockVolumes:      len(g.routedVolumes),
		Callbacks:            len(g.activateCallbacks) + len(g.deactivateCallbacks),
	}

	for i := range g.slots {
		s := &g.slots[i]
		info.LoadedCells += len(s.versions)
		info.VertexConnections += s.connections.Len()
		if len(s.versions) > 1 {
			info.OverlappingSlots++
		}
		if s.active != nil {
			info.Links += s.active.linkCount()
			if s.active.state == Stitched {
				info.StitchedCells++
			}
		}
	}
	return info
}

// CheckInvariants verifies that every slot has at most one active cell, that
// neighbour links are symmetric and that no two active vertices share a
// search index.
func (g *Grid) CheckInvariants() error {
	indices := roaring.New()
	activeCount := 0

	for i := range g.slots {
		s := &g.slots[i]
		pos := g.bounds.PosFromIndex(i)

		active := 0
		for _, c := range s.versions {
			if c.Pos() != pos {
				return errors.New("record stored in the wrong slot").
					WithType(ErrTypeInvariant).
					WithTag("pos", c.Pos().String()).
					WithTag("slot", pos.String())
			}
			if c.active {
				active++
			}
		}

		switch {
		case active > 1:
			return errors.New("several active cells in one slot").
				WithType(ErrTypeInvariant).
				WithTag("pos", pos.String()).
				WithTag("active", active)

		case s.active == nil && active != 0,
			s.active != nil && (!s.active.active || !slices.Contains(s.versions, s.active)):
			return errors.New("slot active cell is inconsistent").
				WithType(ErrTypeInvariant).
				WithTag("pos", pos.String())
		}

		if s.active == nil {
			continue
		}
		activeCount++

		if err := g.checkLinks(s.active); err != nil {
			return err
		}

		for _, vd := range s.active.vertexData {
			if vd.SearchIndex == InvalidSearchIndex || indices.Contains(vd.SearchIndex) {
				return errors.New("search index is not unique").
					WithType(ErrTypeInvariant).
					WithTag("pos", pos.String()).
					WithTag("search_index", vd.SearchIndex)
			}
			indices.Add(vd.SearchIndex)
		}
	}

	if activeCount != g.activeCount {
		return errors.New("active cell count mismatch").
			WithType(ErrTypeInvariant).
			WithTag("count", activeCount).
			WithTag("expected_count", g.activeCount)
	}
	return nil
}

func (g *Grid) checkLinks(c *ActiveCell) error {
	for _, d := range cell.Directions {
		n := g.Active(c.Pos().Neighbor(d))
		if n == nil {
			if len(c.links[d]) != 0 || len(c.edgeLinks[d]) != 0 {
				return errors.New("cell is linked toward an empty slot").
					WithType(ErrTypeInvariant).
					WithTag("pos", c.Pos().String()).
					WithTag("direction", d.String())
			}
			continue
		}

		opposite := d.Opposite()
		if !symmetric(c.links[d], n.links[opposite]) || !symmetric(c.edgeLinks[d], n.edgeLinks[opposite]) {
			return errors.New("cell links are not symmetric").
				WithType(ErrTypeInvariant).
				WithTag("pos", c.Pos().String()).
				WithTag("direction", d.String())
		}
	}
	return nil
}

func symmetric(links, backLinks []Link) bool {
	if len(links) != len(backLinks) {
		return false
	}
	for _, l := range links {
		if !slices.Contains(backLinks, Link{Local: l.Remote, Remote: l.Local}) {
			return false
		}
	}
	return true
}

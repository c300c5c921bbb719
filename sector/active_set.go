package sector

import (
	"slices"

	"github.com/google/uuid"
)

// ActiveSet is the sorted list of GUIDs currently allowed to contribute
// active cells. A sector may only be activated when the set covers every GUID
// of its identity.
type ActiveSet struct {
	guids []uuid.UUID
}

func NewActiveSet(guids ...uuid.UUID) *ActiveSet {
	s := &ActiveSet{}
	for _, g := range guids {
		s.Add(g)
	}
	return s
}

// Add inserts guid and reports whether it was not already present.
func (s *ActiveSet) Add(guid uuid.UUID) bool {
	i, ok := slices.BinarySearchFunc(s.guids, guid, compareGUID)
	if ok {
		return false
	}
	s.guids = slices.Insert(s.guids, i, guid)
	return true
}

// Remove deletes guid and reports whether it was present.
func (s *ActiveSet) Remove(guid uuid.UUID) bool {
	i, ok := slices.BinarySearchFunc(s.guids, guid, compareGUID)
	if !ok {
		return false
	}
	s.guids = slices.Delete(s.guids, i, i+1)
	return true
}

func (s *ActiveSet) Contains(guid uuid.UUID) bool {
	_, ok := slices.BinarySearchFunc(s.guids, guid, compareGUID)
	return ok
}

// Covers reports whether every GUID of id is active. Both lists are sorted so
// this is a single merge walk.
func (s *ActiveSet) Covers(id Identity) bool {
	i := 0
	for _, g := range id.GUIDs {
		for i < len(s.guids) && compareGUID(s.guids[i], g) < 0 {
			i++
		}
		if i == len(s.guids) || s.guids[i] != g {
			return false
		}
	}
	return true
}

func (s *ActiveSet) Len() int {
	return len(s.guids)
}

// GUIDs returns a copy of the active GUIDs in order.
func (s *ActiveSet) GUIDs() []uuid.UUID {
	return slices.Clone(s.guids)
}

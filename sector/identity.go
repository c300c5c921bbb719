// Package sector describes independently streamed units of navigation data:
// their identity, the set of sectors allowed to contribute active cells, and
// the compressed archive format sectors are stored in.
package sector

import (
	"bytes"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Identity identifies a sector by the ordered set of generation GUIDs it was
// built from, plus the time it was last modified. Two sectors built from the
// same GUIDs at different times have the same composition but are not equal.
type Identity struct {
	GUIDs     []uuid.UUID
	Timestamp int64
}

// NewIdentity returns an identity with sorted, deduplicated GUIDs.
func NewIdentity(timestamp int64, guids ...uuid.UUID) Identity {
	sorted := slices.Clone(guids)
	slices.SortFunc(sorted, compareGUID)
	sorted = slices.Compact(sorted)

	return Identity{
		GUIDs:     sorted,
		Timestamp: timestamp,
	}
}

// SameComposition reports whether both identities reference the same GUIDs,
// ignoring the timestamp.
func (id Identity) SameComposition(o Identity) bool {
	return slices.Equal(id.GUIDs, o.GUIDs)
}

// Equal reports whether both identities have the same GUIDs and timestamp.
func (id Identity) Equal(o Identity) bool {
	return id.Timestamp == o.Timestamp && id.SameComposition(o)
}

// Less orders identities by composition, then timestamp.
func (id Identity) Less(o Identity) bool {
	if c := slices.CompareFunc(id.GUIDs, o.GUIDs, compareGUID); c != 0 {
		return c < 0
	}
	return id.Timestamp < o.Timestamp
}

func (id Identity) Contains(guid uuid.UUID) bool {
	_, ok := slices.BinarySearchFunc(id.GUIDs, guid, compareGUID)
	return ok
}

// IsSorted reports whether the GUIDs are strictly increasing, as built by
// NewIdentity. Lookups on an identity that is not sorted are undefined.
func (id Identity) IsSorted() bool {
	for i := 1; i < len(id.GUIDs); i++ {
		if compareGUID(id.GUIDs[i-1], id.GUIDs[i]) >= 0 {
			return false
		}
	}
	return true
}

func (id Identity) IsZero() bool {
	return len(id.GUIDs) == 0
}

// Key returns a string usable as a map or storage key. It does not include
// the timestamp.
func (id Identity) Key() string {
	parts := make([]string, len(id.GUIDs))
	for i, g := range id.GUIDs {
		parts[i] = g.String()
	}
	return strings.Join(parts, "+")
}

func (id Identity) String() string {
	return id.Key()
}

func compareGUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

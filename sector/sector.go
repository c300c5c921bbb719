package sector

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/cell"
	"github.com/aukilabs/navgrid/payload"
)

const (
	ErrTypeInvalidSector  = "invalid_sector"
	ErrTypeInvalidArchive = "invalid_archive"
)

// Sector is one streamed unit of navigation data: a set of immutable cell
// payloads sharing an identity.
type Sector struct {
	Identity Identity
	Kind     payload.Kind
	Cells    []*payload.Cell
}

// New builds a sector and validates it.
func New(id Identity, kind payload.Kind, cells ...*payload.Cell) (*Sector, error) {
	s := &Sector{
		Identity: id,
		Kind:     kind,
		Cells:    cells,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that cells match the sector kind and that no two cells
// share a coordinate.
func (s *Sector) Validate() error {
	if s.Identity.IsZero() {
		return errors.New("sector has no identity").
			WithType(ErrTypeInvalidSector)
	}

	if !s.Identity.IsSorted() {
		return errors.New("sector identity guids are not sorted and unique").
			WithType(ErrTypeInvalidSector).
			WithTag("sector", s.Identity.String())
	}

	positions := make(map[cell.Pos]struct{}, len(s.Cells))
	for i, c := range s.Cells {
		if c == nil {
			return errors.New("sector contains a nil cell").
				WithType(ErrTypeInvalidSector).
				WithTag("sector", s.Identity.String()).
				WithTag("cell", i)
		}

		if c.Kind != s.Kind {
			return errors.New("cell kind does not match sector kind").
				WithType(ErrTypeInvalidSector).
				WithTag("sector", s.Identity.String()).
				WithTag("cell_kind", c.Kind.String()).
				WithTag("sector_kind", s.Kind.String())
		}

		if _, ok := positions[c.Pos]; ok {
			return errors.New("two cells of the sector share a coordinate").
				WithType(ErrTypeInvalidSector).
				WithTag("sector", s.Identity.String()).
				WithTag("pos", c.Pos.String())
		}
		positions[c.Pos] = struct{}{}
	}
	return nil
}

// Box returns the bounds of the coordinates covered by the sector cells.
func (s *Sector) Box() cell.Box {
	box := cell.EmptyBox()
	for _, c := range s.Cells {
		box = box.Enlarged(c.Pos)
	}
	return box
}

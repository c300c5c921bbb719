package cell

import (
	"fmt"
	"math"
)

// Box is an inclusive rectangle of cell coordinates.
//
// A Box with Min greater than Max on any axis is empty. The slot buffer of a
// grid is laid out row-major over its Box, so every change of bounds requires
// re-indexing the slots.
type Box struct {
	Min Pos
	Max Pos
}

func NewBox(min, max Pos) Box {
	return Box{Min: min, Max: max}
}

// BoxAt returns the single-cell box containing p.
func BoxAt(p Pos) Box {
	return Box{Min: p, Max: p}
}

// EmptyBox returns a box that contains no coordinate. Enlarging it by a
// position yields the single-cell box of that position.
func EmptyBox() Box {
	return Box{Min: Pos{X: 1, Y: 1}, Max: Pos{X: 0, Y: 0}}
}

func (b Box) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

func (b Box) CountX() int {
	if !b.Valid() {
		return 0
	}
	return int(b.Max.X) - int(b.Min.X) + 1
}

func (b Box) CountY() int {
	if !b.Valid() {
		return 0
	}
	return int(b.Max.Y) - int(b.Min.Y) + 1
}

// Count returns the number of slots covered by the box. It saturates at
// math.MaxInt for boxes spanning most of the coordinate range.
func (b Box) Count() int {
	x, y := b.CountX(), b.CountY()
	if y != 0 && x > math.MaxInt/y {
		return math.MaxInt
	}
	return x * y
}

func (b Box) IsInside(p Pos) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Contains reports whether o is entirely covered by b. An empty o is always
// contained.
func (b Box) Contains(o Box) bool {
	if !o.Valid() {
		return true
	}
	return b.IsInside(o.Min) && b.IsInside(o.Max)
}

// RowMajorIndex returns the slot index of p. p must be inside the box.
func (b Box) RowMajorIndex(p Pos) int {
	return (int(p.Y)-int(b.Min.Y))*b.CountX() + (int(p.X) - int(b.Min.X))
}

// PosFromIndex is the inverse of RowMajorIndex.
func (b Box) PosFromIndex(idx int) Pos {
	countX := b.CountX()
	return Pos{
		X: b.Min.X + int32(idx%countX),
		Y: b.Min.Y + int32(idx/countX),
	}
}

// Enlarged returns the smallest box containing b and p.
func (b Box) Enlarged(p Pos) Box {
	if !b.Valid() {
		return BoxAt(p)
	}
	return Box{
		Min: Pos{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y)},
		Max: Pos{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y)},
	}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if !o.Valid() {
		return b
	}
	if !b.Valid() {
		return o
	}
	return b.Enlarged(o.Min).Enlarged(o.Max)
}

// Intersect returns the overlap of both boxes, which may be empty.
func (b Box) Intersect(o Box) Box {
	if !b.Valid() || !o.Valid() {
		return EmptyBox()
	}
	r := Box{
		Min: Pos{X: max(b.Min.X, o.Min.X), Y: max(b.Min.Y, o.Min.Y)},
		Max: Pos{X: min(b.Max.X, o.Max.X), Y: min(b.Max.Y, o.Max.Y)},
	}
	if !r.Valid() {
		return EmptyBox()
	}
	return r
}

// Grown returns the box extended by n cells on every side.
func (b Box) Grown(n int32) Box {
	if !b.Valid() {
		return b
	}
	return Box{
		Min: Pos{X: b.Min.X - n, Y: b.Min.Y - n},
		Max: Pos{X: b.Max.X + n, Y: b.Max.Y + n},
	}
}

// ForEach calls f for every coordinate of the box in row-major order.
func (b Box) ForEach(f func(Pos)) {
	for y := b.Min.Y; b.Valid() && y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			f(Pos{X: x, Y: y})
		}
	}
}

func (b Box) String() string {
	if !b.Valid() {
		return "[empty]"
	}
	return fmt.Sprintf("[%s..%s]", b.Min, b.Max)
}

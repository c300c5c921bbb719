package cell

import "math"

// Rulers hold the world-space border of every column and row of a Box. They
// are used to find the cell owning a floating point position while keeping
// border ownership consistent with the generation pipeline:
//   - on X a cell owns the half-open range (west, east],
//   - on Y a cell owns the half-open range [south, north).
//
// Rulers must be rebuilt whenever the bounds they were computed for change.
type Rulers struct {
	box      Box
	cellSize float32
	X        []float32
	Y        []float32
}

// NewRulers computes the rulers of box for square cells of cellSize world
// units.
func NewRulers(box Box, cellSize float32) Rulers {
	r := Rulers{
		box:      box,
		cellSize: cellSize,
	}
	if !box.Valid() || cellSize <= 0 {
		return r
	}

	r.X = make([]float32, box.CountX()+1)
	for i := range r.X {
		r.X[i] = float32(float64(int64(box.Min.X)+int64(i)) * float64(cellSize))
	}

	r.Y = make([]float32, box.CountY()+1)
	for i := range r.Y {
		r.Y[i] = float32(float64(int64(box.Min.Y)+int64(i)) * float64(cellSize))
	}
	return r
}

func (r Rulers) Box() Box {
	return r.box
}

func (r Rulers) CellSize() float32 {
	return r.cellSize
}

// Pos returns the coordinate of the cell owning the world position (x, y).
// The result may lie outside the bounds; see Clamp.
func (r Rulers) Pos(x, y float32) Pos {
	if r.cellSize <= 0 {
		return Pos{}
	}
	cx := int32(math.Floor(float64(x) / float64(r.cellSize)))
	cy := int32(math.Floor(float64(y) / float64(r.cellSize)))
	return Pos{X: r.correctX(x, cx), Y: r.correctY(y, cy)}
}

// Clamp returns the coordinate inside the bounds nearest to p.
func (r Rulers) Clamp(p Pos) Pos {
	if !r.box.Valid() {
		return p
	}
	return Pos{
		X: min(max(p.X, r.box.Min.X), r.box.Max.X),
		Y: min(max(p.Y, r.box.Min.Y), r.box.Max.Y),
	}
}

// WorldBounds returns the world rectangle covered by the cell at p.
func (r Rulers) WorldBounds(p Pos) (minX, minY, maxX, maxY float32) {
	if r.box.IsInside(p) {
		ix := int(p.X - r.box.Min.X)
		iy := int(p.Y - r.box.Min.Y)
		return r.X[ix], r.Y[iy], r.X[ix+1], r.Y[iy+1]
	}
	s := float64(r.cellSize)
	return float32(float64(p.X) * s), float32(float64(p.Y) * s),
		float32(float64(p.X+1) * s), float32(float64(p.Y+1) * s)
}

func (r Rulers) correctX(x float32, cx int32) int32 {
	if len(r.X) == 0 {
		return cx
	}

	if cx >= r.box.Min.X && cx <= r.box.Max.X {
		i := int(cx - r.box.Min.X)
		if x <= r.X[i] {
			return cx - 1
		}
		if x > r.X[i+1] {
			return cx + 1
		}
		return cx
	}

	if cx == r.box.Min.X-1 && x > r.X[0] {
		return cx + 1
	}
	if cx == r.box.Max.X+1 && x <= r.X[len(r.X)-1] {
		return cx - 1
	}
	return cx
}

func (r Rulers) correctY(y float32, cy int32) int32 {
	if len(r.Y) == 0 {
		return cy
	}

	if cy >= r.box.Min.Y && cy <= r.box.Max.Y {
		i := int(cy - r.box.Min.Y)
		if y < r.Y[i] {
			return cy - 1
		}
		if y >= r.Y[i+1] {
			return cy + 1
		}
		return cy
	}

	if cy == r.box.Min.Y-1 && y >= r.Y[0] {
		return cy + 1
	}
	if cy == r.box.Max.Y+1 && y < r.Y[len(r.Y)-1] {
		return cy - 1
	}
	return cy
}

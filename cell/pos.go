package cell

import "fmt"

// Pos is the integer coordinate of a cell in the grid.
type Pos struct {
	X int32
	Y int32
}

func NewPos(x, y int32) Pos {
	return Pos{X: x, Y: y}
}

// Neighbor returns the coordinate of the adjacent cell in the given direction.
func (p Pos) Neighbor(d Direction) Pos {
	switch d {
	case East:
		return Pos{X: p.X + 1, Y: p.Y}
	case North:
		return Pos{X: p.X, Y: p.Y + 1}
	case West:
		return Pos{X: p.X - 1, Y: p.Y}
	case South:
		return Pos{X: p.X, Y: p.Y - 1}
	}
	return p
}

// Less orders positions row by row, like the slot buffer.
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the four cardinal directions a cell can be stitched in.
type Direction uint8

const (
	East Direction = iota
	North
	West
	South
)

// DirectionCount is the number of cardinal directions.
const DirectionCount = 4

// Directions lists every cardinal direction in stitching order.
var Directions = [DirectionCount]Direction{East, North, West, South}

func (d Direction) Opposite() Direction {
	return (d + 2) % DirectionCount
}

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case North:
		return "north"
	case West:
		return "west"
	case South:
		return "south"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

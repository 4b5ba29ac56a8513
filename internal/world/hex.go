// Package world provides the hex grid, cells, and the terrain state rules.
// Cells are addressed by cube coordinates stored as (X, Z); Y is derived.
package world

import (
	"fmt"
	"math"
)

// Coordinates is a cube coordinate with the invariant X + Y + Z = 0.
// Only X and Z are stored.
type Coordinates struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Y returns the implicit third cube coordinate.
func (c Coordinates) Y() int {
	return -c.X - c.Z
}

// FromOffset converts offset (column, row) coordinates to cube coordinates.
// Rows shift by half a cell every other row.
func FromOffset(col, row int) Coordinates {
	return Coordinates{X: col - floorDiv(row, 2), Z: row}
}

// FromPosition converts a point in the grid plane to the coordinates of the
// cell containing it.
func FromPosition(px, pz float64) Coordinates {
	x := px / (InnerRadius * 2)
	y := -x

	offset := pz / (OuterRadius * 3)
	x -= offset
	y -= offset

	iX := int(math.RoundToEven(x))
	iY := int(math.RoundToEven(y))
	iZ := int(math.RoundToEven(-x - y))

	if iX+iY+iZ != 0 {
		dX := math.Abs(x - float64(iX))
		dY := math.Abs(y - float64(iY))
		dZ := math.Abs(-x - y - float64(iZ))

		if dX > dY && dX > dZ {
			iX = -iY - iZ
		} else if dZ > dY {
			iZ = -iX - iY
		}
	}

	return Coordinates{X: iX, Z: iZ}
}

// Offset returns the (column, row) offset coordinates.
func (c Coordinates) Offset() (col, row int) {
	return c.X + floorDiv(c.Z, 2), c.Z
}

// DistanceTo returns the hex distance between two coordinates.
func (c Coordinates) DistanceTo(other Coordinates) int {
	dx := abs(c.X - other.X)
	dy := abs(c.Y() - other.Y())
	dz := abs(c.Z - other.Z)

	// Max of the three absolute differences in cube coordinates.
	max := dx
	if dy > max {
		max = dy
	}
	if dz > max {
		max = dz
	}
	return max
}

// String renders the coordinates in cube form.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y(), c.Z)
}

// Direction names one of the six cell edges, clockwise from north-east.
type Direction uint8

const (
	NE Direction = iota
	E
	SE
	SW
	W
	NW
)

// Directions lists all six directions in order.
var Directions = [6]Direction{NE, E, SE, SW, W, NW}

// Opposite returns the direction pointing back across the same edge.
func (d Direction) Opposite() Direction {
	return (d + 3) % 6
}

// Previous returns the direction counter-clockwise of d.
func (d Direction) Previous() Direction {
	return (d + 5) % 6
}

// Next returns the direction clockwise of d.
func (d Direction) Next() Direction {
	return (d + 1) % 6
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool {
	return d <= NW
}

// String returns the compass name of the direction.
func (d Direction) String() string {
	switch d {
	case NE:
		return "NE"
	case E:
		return "E"
	case SE:
		return "SE"
	case SW:
		return "SW"
	case W:
		return "W"
	case NW:
		return "NW"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection parses a compass name produced by String.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

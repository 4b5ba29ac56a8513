package editor

import (
	"fmt"
	"math"

	"github.com/talgya/hexmap/internal/world"
)

// MaxBrushSize is the largest brush radius accepted by Validate.
const MaxBrushSize = 8

// Toggle is a three-way brush option: leave the feature alone, add it, or
// remove it.
type Toggle int

const (
	Ignore Toggle = iota
	Yes
	No
)

var toggleNames = [...]string{"ignore", "yes", "no"}

func (t Toggle) String() string {
	if t < 0 || int(t) >= len(toggleNames) {
		return fmt.Sprintf("Toggle(%d)", int(t))
	}
	return toggleNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Toggle) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Toggle) UnmarshalText(b []byte) error {
	for i, name := range toggleNames {
		if string(b) == name {
			*t = Toggle(i)
			return nil
		}
	}
	return fmt.Errorf("unknown toggle %q", b)
}

// Brush describes one edit applied to every cell under it. Nil values are
// left unchanged.
type Brush struct {
	Terrain      *int `json:"terrain,omitempty"`
	Elevation    *int `json:"elevation,omitempty"`
	WaterLevel   *int `json:"water_level,omitempty"`
	UrbanLevel   *int `json:"urban_level,omitempty"`
	FarmLevel    *int `json:"farm_level,omitempty"`
	PlantLevel   *int `json:"plant_level,omitempty"`
	SpecialIndex *int `json:"special_index,omitempty"`

	River  Toggle `json:"river"`
	Road   Toggle `json:"road"`
	Walled Toggle `json:"walled"`

	// Size is the brush radius in cells; 0 edits only the center.
	Size int `json:"size"`
}

// Validate checks that every value can be stored in a saved map.
func (b Brush) Validate() error {
	if b.Size < 0 || b.Size > MaxBrushSize {
		return fmt.Errorf("brush size %d: %w", b.Size, ErrOutOfRange)
	}
	levels := []struct {
		name  string
		value *int
	}{
		{"terrain", b.Terrain},
		{"elevation", b.Elevation},
		{"water level", b.WaterLevel},
		{"urban level", b.UrbanLevel},
		{"farm level", b.FarmLevel},
		{"plant level", b.PlantLevel},
		{"special index", b.SpecialIndex},
	}
	for _, l := range levels {
		if l.value != nil && (*l.value < 0 || *l.value > math.MaxUint8) {
			return fmt.Errorf("%s %d: %w", l.name, *l.value, ErrOutOfRange)
		}
	}
	for _, t := range []Toggle{b.River, b.Road, b.Walled} {
		if t < Ignore || t > No {
			return fmt.Errorf("toggle %d: %w", int(t), ErrOutOfRange)
		}
	}
	return nil
}

// Drag is the movement of the pointer from one cell into an adjacent one.
// Dragging draws rivers and roads in its direction.
type Drag struct {
	Active    bool
	Direction world.Direction
}

// DragBetween returns the drag from previous into current, which is only
// active when the two cells are neighbors.
func DragBetween(previous, current *world.Cell) Drag {
	if previous == nil || current == nil || previous == current {
		return Drag{}
	}
	for _, d := range world.Directions {
		if previous.Neighbor(d) == current {
			return Drag{Active: true, Direction: d}
		}
	}
	return Drag{}
}

// EditCells applies the brush to every cell within Size steps of center.
// Cells outside the map are skipped.
func (b Brush) EditCells(g *world.Grid, center world.Coordinates, drag Drag) int {
	edited := 0
	edit := func(x, z int) {
		if c := g.CellAt(world.Coordinates{X: x, Z: z}); c != nil {
			b.EditCell(c, drag)
			edited++
		}
	}

	for r, z := 0, center.Z-b.Size; z <= center.Z; z, r = z+1, r+1 {
		for x := center.X - r; x <= center.X+b.Size; x++ {
			edit(x, z)
		}
	}
	for r, z := 0, center.Z+b.Size; z > center.Z; z, r = z-1, r+1 {
		for x := center.X - b.Size; x <= center.X+r; x++ {
			edit(x, z)
		}
	}
	return edited
}

// EditCell applies the brush to a single cell through the regular cell
// setters, so every editing rule still holds.
func (b Brush) EditCell(c *world.Cell, drag Drag) {
	if b.Terrain != nil {
		c.SetTerrainTypeIndex(*b.Terrain)
	}
	if b.Elevation != nil {
		c.SetElevation(*b.Elevation)
	}
	if b.WaterLevel != nil {
		c.SetWaterLevel(*b.WaterLevel)
	}
	if b.UrbanLevel != nil {
		c.SetUrbanLevel(*b.UrbanLevel)
	}
	if b.FarmLevel != nil {
		c.SetFarmLevel(*b.FarmLevel)
	}
	if b.PlantLevel != nil {
		c.SetPlantLevel(*b.PlantLevel)
	}
	if b.SpecialIndex != nil {
		c.SetSpecialIndex(*b.SpecialIndex)
	}
	if b.River == No {
		c.RemoveRiver()
	}
	if b.Road == No {
		c.RemoveRoads()
	}
	if b.Walled != Ignore {
		c.SetWalled(b.Walled == Yes)
	}

	if !drag.Active {
		return
	}
	other := c.Neighbor(drag.Direction.Opposite())
	if other == nil {
		return
	}
	if b.River == Yes {
		other.SetOutgoingRiver(drag.Direction)
	}
	if b.Road == Yes {
		other.AddRoad(drag.Direction)
	}
}

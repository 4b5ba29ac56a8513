package editor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/talgya/hexmap/internal/world"
)

func intp(v int) *int { return &v }

func newGrid(t *testing.T, width, height int) *world.Grid {
	t.Helper()
	g, err := world.NewGrid(width, height)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestEditCellsCoversDisc(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 1},
		{1, 7},
		{2, 19},
		{3, 37},
	}
	for _, tt := range tests {
		g := newGrid(t, 20, 20)
		center := g.CellAtOffset(10, 10).Coordinates
		b := Brush{Elevation: intp(1), Size: tt.size}

		if got := b.EditCells(g, center, Drag{}); got != tt.want {
			t.Errorf("size %d: edited %d cells, want %d", tt.size, got, tt.want)
		}
		for _, c := range g.Cells() {
			inside := c.Coordinates.DistanceTo(center) <= tt.size
			if inside != (c.Elevation() == 1) {
				t.Fatalf("size %d: cell %v at distance %d has elevation %d",
					tt.size, c.Coordinates, c.Coordinates.DistanceTo(center), c.Elevation())
			}
		}
	}
}

func TestEditCellsClipsAtMapEdge(t *testing.T) {
	g := newGrid(t, 10, 10)
	b := Brush{Terrain: intp(world.TerrainMud), Size: 1}
	// The corner cell has two neighbors on the map: east and north-east.
	if got := b.EditCells(g, g.CellAtOffset(0, 0).Coordinates, Drag{}); got != 3 {
		t.Fatalf("edited %d cells at the corner, want 3", got)
	}
}

func TestDragDrawsRiver(t *testing.T) {
	g := newGrid(t, 10, 10)
	a := g.CellAtOffset(4, 4)
	c := a.Neighbor(world.E)

	drag := DragBetween(a, c)
	if !drag.Active || drag.Direction != world.E {
		t.Fatalf("DragBetween = %+v", drag)
	}

	Brush{River: Yes}.EditCells(g, c.Coordinates, drag)
	if !a.HasOutgoingRiver() || a.OutgoingRiver() != world.E {
		t.Fatalf("drag did not draw a river from %v", a.Coordinates)
	}
	if !c.HasIncomingRiver() || c.IncomingRiver() != world.W {
		t.Fatalf("neighbor has no incoming river")
	}

	Brush{River: No}.EditCells(g, c.Coordinates, Drag{})
	if a.HasRiver() || c.HasRiver() {
		t.Fatalf("river not removed")
	}
}

func TestDragDrawsRoad(t *testing.T) {
	g := newGrid(t, 10, 10)
	a := g.CellAtOffset(4, 4)
	c := a.Neighbor(world.NE)

	Brush{Road: Yes}.EditCells(g, c.Coordinates, DragBetween(a, c))
	if !a.HasRoadThroughEdge(world.NE) || !c.HasRoadThroughEdge(world.SW) {
		t.Fatalf("drag did not draw a road")
	}

	Brush{Road: No}.EditCells(g, a.Coordinates, Drag{})
	if a.HasRoads() || c.HasRoads() {
		t.Fatalf("roads not removed")
	}
}

func TestDragBetweenNonNeighbors(t *testing.T) {
	g := newGrid(t, 10, 10)
	a, b := g.CellAtOffset(1, 1), g.CellAtOffset(5, 5)
	if DragBetween(a, b).Active || DragBetween(a, a).Active || DragBetween(nil, a).Active {
		t.Fatalf("drag between non-neighbors should be inactive")
	}
}

func TestWalledToggle(t *testing.T) {
	g := newGrid(t, 5, 5)
	c := g.CellAtOffset(2, 2)

	Brush{Walled: Yes}.EditCell(c, Drag{})
	if !c.Walled() {
		t.Fatalf("walls not built")
	}
	Brush{}.EditCell(c, Drag{})
	if !c.Walled() {
		t.Fatalf("ignore toggle changed walls")
	}
	Brush{Walled: No}.EditCell(c, Drag{})
	if c.Walled() {
		t.Fatalf("walls not removed")
	}
}

func TestBrushValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Brush
		ok   bool
	}{
		{"empty", Brush{}, true},
		{"full", Brush{Elevation: intp(6), WaterLevel: intp(3), UrbanLevel: intp(3), Size: MaxBrushSize}, true},
		{"negative size", Brush{Size: -1}, false},
		{"huge size", Brush{Size: MaxBrushSize + 1}, false},
		{"negative elevation", Brush{Elevation: intp(-1)}, false},
		{"unencodable plant level", Brush{PlantLevel: intp(256)}, false},
		{"bad toggle", Brush{River: Toggle(7)}, false},
	}
	for _, tt := range tests {
		err := tt.b.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s: err = %v, want ErrOutOfRange", tt.name, err)
		}
	}
}

func TestBrushJSON(t *testing.T) {
	var b Brush
	body := `{"elevation": 2, "river": "yes", "walled": "no", "size": 1}`
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if b.Elevation == nil || *b.Elevation != 2 || b.River != Yes || b.Walled != No || b.Road != Ignore || b.Size != 1 {
		t.Fatalf("decoded %+v", b)
	}
	if b.Terrain != nil {
		t.Fatalf("absent terrain should stay nil")
	}

	if err := json.Unmarshal([]byte(`{"road": "maybe"}`), &b); err == nil {
		t.Fatalf("expected an error for an unknown toggle")
	}
}

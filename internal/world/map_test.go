package world

import "testing"

// Cube offsets (X, Z) of each direction.
var directionOffsets = [6]Coordinates{
	NE: {X: 0, Z: 1},
	E:  {X: 1, Z: 0},
	SE: {X: 1, Z: -1},
	SW: {X: 0, Z: -1},
	W:  {X: -1, Z: 0},
	NW: {X: -1, Z: 1},
}

func TestNeighborSymmetry(t *testing.T) {
	g := newTestGrid(t, 15, 10)
	for _, c := range g.Cells() {
		for _, d := range Directions {
			n := c.Neighbor(d)
			if n == nil {
				continue
			}
			if n.Neighbor(d.Opposite()) != c {
				t.Fatalf("%v -%v-> %v is not mirrored", c.Coordinates, d, n.Coordinates)
			}
		}
	}
}

func TestNeighborCoordinates(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	for _, c := range g.Cells() {
		for _, d := range Directions {
			want := Coordinates{
				X: c.Coordinates.X + directionOffsets[d].X,
				Z: c.Coordinates.Z + directionOffsets[d].Z,
			}
			expected := g.CellAt(want)
			if got := c.Neighbor(d); got != expected {
				t.Fatalf("%v.Neighbor(%v) = %p, want cell at %v (%p)", c.Coordinates, d, got, want, expected)
			}
		}
	}
}

func TestEdgeCellsOmitLinks(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	corner := g.CellAtOffset(0, 0)
	for _, d := range []Direction{SW, W, SE} {
		if corner.Neighbor(d) != nil {
			t.Errorf("corner has neighbor %v", d)
		}
	}
	if corner.Neighbor(E) == nil || corner.Neighbor(NE) == nil {
		t.Errorf("corner missing inner neighbors")
	}
}

func TestCellAt(t *testing.T) {
	g := newTestGrid(t, 10, 5)
	for i, c := range g.Cells() {
		if c.Index != i {
			t.Fatalf("cell %d has index %d", i, c.Index)
		}
		if g.CellAt(c.Coordinates) != c {
			t.Fatalf("CellAt(%v) did not return its cell", c.Coordinates)
		}
	}

	outside := []Coordinates{
		{X: 0, Z: -1},
		{X: 0, Z: 5},
		{X: -1, Z: 0},
		{X: 10, Z: 0},
		{X: -3, Z: 4}, // col -1
		{X: 8, Z: 4},  // col 10
	}
	for _, c := range outside {
		if got := g.CellAt(c); got != nil {
			t.Errorf("CellAt(%v) = %v, want nil", c, got.Coordinates)
		}
	}
}

func TestCellAtPositionOffMap(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	if c := g.CellAtPosition(-100, -100); c != nil {
		t.Fatalf("CellAtPosition off map = %v", c.Coordinates)
	}
	if c := g.CellAtPosition(1000, 10); c != nil {
		t.Fatalf("CellAtPosition off map = %v", c.Coordinates)
	}
	if c := g.CellAtPosition(0, 0); c != g.CellAtOffset(0, 0) {
		t.Fatalf("CellAtPosition(0, 0) did not return the first cell")
	}
}

func TestCreateMapRejectsBadSize(t *testing.T) {
	g := newTestGrid(t, 10, 5)
	g.CellAtOffset(1, 1).SetElevation(3)

	for _, size := range [][2]int{{0, 5}, {7, 5}, {10, 0}, {10, 12}, {-5, 5}} {
		if g.CreateMap(size[0], size[1]) {
			t.Fatalf("CreateMap(%d, %d) should fail", size[0], size[1])
		}
	}

	if g.CellCountX() != 10 || g.CellCountZ() != 5 || len(g.Cells()) != 50 {
		t.Fatalf("failed CreateMap changed the grid: %v", g)
	}
	if g.CellAtOffset(1, 1).Elevation() != 3 {
		t.Fatalf("failed CreateMap changed cell state")
	}

	if _, err := NewGrid(3, 3); err == nil {
		t.Fatalf("NewGrid(3, 3) should fail")
	}
}

func TestCreateMapReplacesCells(t *testing.T) {
	g := newTestGrid(t, 10, 5)
	old := g.CellAtOffset(0, 0)
	g.AddUnit(old, 0)

	if !g.CreateMap(5, 10) {
		t.Fatalf("CreateMap(5, 10) failed")
	}
	if g.CellCountX() != 5 || g.CellCountZ() != 10 || g.ChunkCount() != 2 {
		t.Fatalf("unexpected size after CreateMap: %v", g)
	}
	if g.CellAtOffset(0, 0) == old {
		t.Fatalf("cells were not recreated")
	}
	if len(g.Units()) != 0 {
		t.Fatalf("units survived CreateMap")
	}
}

func TestChunkCells(t *testing.T) {
	g := newTestGrid(t, 10, 10)
	seen := make(map[*Cell]bool)
	for chunk := 0; chunk < g.ChunkCount(); chunk++ {
		cells := g.ChunkCells(chunk)
		if len(cells) != ChunkSizeX*ChunkSizeZ {
			t.Fatalf("chunk %d has %d cells", chunk, len(cells))
		}
		for _, c := range cells {
			if c.Chunk() != chunk {
				t.Fatalf("cell %v reports chunk %d, listed in %d", c.Coordinates, c.Chunk(), chunk)
			}
			seen[c] = true
		}
	}
	if len(seen) != len(g.Cells()) {
		t.Fatalf("chunks cover %d of %d cells", len(seen), len(g.Cells()))
	}
	if g.ChunkCells(4) != nil {
		t.Fatalf("ChunkCells out of range should be nil")
	}
}

func TestNextSearchPhase(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	if p := g.NextSearchPhase(); p != 2 {
		t.Fatalf("first phase = %d, want 2", p)
	}
	if p := g.NextSearchPhase(); p != 4 {
		t.Fatalf("second phase = %d, want 4", p)
	}
}

package world

import "fmt"

// Default map size used when nothing else is configured.
const (
	DefaultCellCountX = 20
	DefaultCellCountZ = 15
)

// Grid holds every cell of a map in a dense array indexed by
// x + z*CellCountX in offset coordinates.
type Grid struct {
	cellCountX, cellCountZ   int
	chunkCountX, chunkCountZ int

	cells []*Cell
	units []*Unit

	// searchPhase is the generation counter shared by all searches over
	// this grid's cells.
	searchPhase int

	dirty map[int]struct{}

	// OnRefresh, when set, is called every time a chunk needs redrawing.
	OnRefresh func(chunk int)
}

// NewGrid creates a grid of the given size. It returns an error when the
// size is not a positive multiple of the chunk size.
func NewGrid(width, height int) (*Grid, error) {
	g := &Grid{dirty: make(map[int]struct{})}
	if !g.CreateMap(width, height) {
		return nil, fmt.Errorf("unsupported map size %dx%d", width, height)
	}
	return g, nil
}

// ValidSize reports whether width x height is a supported map size.
func ValidSize(width, height int) bool {
	return width > 0 && width%ChunkSizeX == 0 && height > 0 && height%ChunkSizeZ == 0
}

// CreateMap replaces every cell with a fresh map of the given size. It
// returns false and leaves the grid untouched when the size is not a
// positive multiple of the chunk size.
func (g *Grid) CreateMap(width, height int) bool {
	if !ValidSize(width, height) {
		return false
	}

	g.ClearUnits()

	g.cellCountX = width
	g.cellCountZ = height
	g.chunkCountX = width / ChunkSizeX
	g.chunkCountZ = height / ChunkSizeZ
	if g.dirty == nil {
		g.dirty = make(map[int]struct{})
	}

	g.cells = make([]*Cell, width*height)
	for z, i := 0, 0; z < height; z++ {
		for x := 0; x < width; x++ {
			g.createCell(x, z, i)
			i++
		}
	}
	return true
}

func (g *Grid) createCell(x, z, i int) {
	c := &Cell{
		Coordinates: FromOffset(x, z),
		Index:       i,
		grid:        g,
		elevation:   UnsetElevation,
		x:           (float64(x) + float64(z)*0.5 - float64(z/2)) * (InnerRadius * 2),
		z:           float64(z) * (OuterRadius * 1.5),
	}
	c.chunk = (x / ChunkSizeX) + (z/ChunkSizeZ)*g.chunkCountX
	g.cells[i] = c

	if x > 0 {
		c.setNeighbor(W, g.cells[i-1])
	}
	if z > 0 {
		if z&1 == 0 {
			c.setNeighbor(SE, g.cells[i-g.cellCountX])
			if x > 0 {
				c.setNeighbor(SW, g.cells[i-g.cellCountX-1])
			}
		} else {
			c.setNeighbor(SW, g.cells[i-g.cellCountX])
			if x < g.cellCountX-1 {
				c.setNeighbor(SE, g.cells[i-g.cellCountX+1])
			}
		}
	}

	c.SetElevation(0)
}

// CellCountX returns the map width in cells.
func (g *Grid) CellCountX() int { return g.cellCountX }

// CellCountZ returns the map height in cells.
func (g *Grid) CellCountZ() int { return g.cellCountZ }

// ChunkCount returns the number of refresh chunks.
func (g *Grid) ChunkCount() int { return g.chunkCountX * g.chunkCountZ }

// Cells returns all cells in row-major order (x fastest). The slice is
// owned by the grid.
func (g *Grid) Cells() []*Cell {
	return g.cells
}

// CellAt returns the cell at the given coordinates, or nil when they lie
// outside the map.
func (g *Grid) CellAt(c Coordinates) *Cell {
	z := c.Z
	if z < 0 || z >= g.cellCountZ {
		return nil
	}
	x := c.X + z/2
	if x < 0 || x >= g.cellCountX {
		return nil
	}
	return g.cells[x+z*g.cellCountX]
}

// CellAtOffset returns the cell at the given column and row, or nil.
func (g *Grid) CellAtOffset(col, row int) *Cell {
	if col < 0 || col >= g.cellCountX || row < 0 || row >= g.cellCountZ {
		return nil
	}
	return g.cells[col+row*g.cellCountX]
}

// CellAtPosition returns the cell containing the point (x, z) of the grid
// plane, or nil when the point is off the map.
func (g *Grid) CellAtPosition(x, z float64) *Cell {
	return g.CellAt(FromPosition(x, z))
}

// NextSearchPhase advances the search generation counter by two and
// returns it. Cells whose stored phase is lower are unvisited for the
// new search.
func (g *Grid) NextSearchPhase() int {
	g.searchPhase += 2
	return g.searchPhase
}

func (g *Grid) refreshChunk(chunk int) {
	g.dirty[chunk] = struct{}{}
	if g.OnRefresh != nil {
		g.OnRefresh(chunk)
	}
}

// RefreshAll marks every chunk as needing a redraw.
func (g *Grid) RefreshAll() {
	for i := 0; i < g.ChunkCount(); i++ {
		g.refreshChunk(i)
	}
}

// DirtyChunks returns the chunks refreshed since the last call, in
// ascending order, and resets the set.
func (g *Grid) DirtyChunks() []int {
	if len(g.dirty) == 0 {
		return nil
	}
	out := make([]int, 0, len(g.dirty))
	for i := 0; i < g.ChunkCount(); i++ {
		if _, ok := g.dirty[i]; ok {
			out = append(out, i)
		}
	}
	clear(g.dirty)
	return out
}

// ChunkCells returns the cells belonging to a chunk.
func (g *Grid) ChunkCells(chunk int) []*Cell {
	if chunk < 0 || chunk >= g.ChunkCount() {
		return nil
	}
	cx := chunk % g.chunkCountX
	cz := chunk / g.chunkCountX

	out := make([]*Cell, 0, ChunkSizeX*ChunkSizeZ)
	for z := cz * ChunkSizeZ; z < (cz+1)*ChunkSizeZ; z++ {
		for x := cx * ChunkSizeX; x < (cx+1)*ChunkSizeX; x++ {
			out = append(out, g.cells[x+z*g.cellCountX])
		}
	}
	return out
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, chunks=%d, units=%d)", g.cellCountX, g.cellCountZ, g.ChunkCount(), len(g.units))
}

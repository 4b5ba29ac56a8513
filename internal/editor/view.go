package editor

import (
	"fmt"

	"github.com/talgya/hexmap/internal/world"
)

// CellView is a read-only copy of one cell.
type CellView struct {
	world.Coordinates
	world.CellData
	Chunk      int  `json:"chunk"`
	Underwater bool `json:"underwater"`
	Unit       bool `json:"unit"`
}

// UnitView is a read-only copy of one unit.
type UnitView struct {
	Location    world.Coordinates `json:"location"`
	Display     world.Coordinates `json:"display"`
	Orientation float64           `json:"orientation"`
	Traveling   bool              `json:"traveling"`
}

// PathStep is one cell of a path with its search distance and the turn on
// which it is reached.
type PathStep struct {
	world.Coordinates
	Distance int `json:"distance"`
	Turn     int `json:"turn"`
}

// PathView is the remembered path.
type PathView struct {
	From  world.Coordinates `json:"from"`
	To    world.Coordinates `json:"to"`
	Cost  int               `json:"cost"`
	Turns int               `json:"turns"`
	Steps []PathStep        `json:"steps"`
}

// MapView is a consistent copy of the whole session state.
type MapView struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Chunks int        `json:"chunks"`
	Cells  []CellView `json:"cells"`
	Units  []UnitView `json:"units"`
	Path   *PathView  `json:"path,omitempty"`
}

// Status summarizes the session.
type Status struct {
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	Chunks       int  `json:"chunks"`
	Units        int  `json:"units"`
	Moving       int  `json:"moving"`
	HasPath      bool `json:"has_path"`
	DefaultSpeed int  `json:"default_speed"`
}

func cellView(c *world.Cell) CellView {
	return CellView{
		Coordinates: c.Coordinates,
		CellData:    c.Data(),
		Chunk:       c.Chunk(),
		Underwater:  c.IsUnderwater(),
		Unit:        c.Unit() != nil,
	}
}

// Snapshot copies the whole map.
func (s *Session) Snapshot() MapView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := MapView{
		Width:  s.grid.CellCountX(),
		Height: s.grid.CellCountZ(),
		Chunks: s.grid.ChunkCount(),
		Cells:  make([]CellView, 0, len(s.grid.Cells())),
		Units:  make([]UnitView, 0, len(s.grid.Units())),
	}
	for _, c := range s.grid.Cells() {
		v.Cells = append(v.Cells, cellView(c))
	}
	for _, u := range s.grid.Units() {
		v.Units = append(v.Units, UnitView{
			Location:    u.Location().Coordinates,
			Display:     u.DisplayCell().Coordinates,
			Orientation: u.Orientation,
			Traveling:   u.Traveling(),
		})
	}
	if s.searcher.HasPath() {
		p := s.pathView()
		v.Path = &p
	}
	return v
}

// Cell copies the cell at c.
func (s *Session) Cell(c world.Coordinates) (CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.grid.CellAt(c)
	if cell == nil {
		return CellView{}, fmt.Errorf("cell %v: %w", c, ErrOutOfRange)
	}
	return cellView(cell), nil
}

// CellAtPosition returns the cell under the point (x, z) of the map plane.
func (s *Session) CellAtPosition(x, z float64) (CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.grid.CellAtPosition(x, z)
	if cell == nil {
		return CellView{}, fmt.Errorf("point (%.2f, %.2f): %w", x, z, ErrOutOfRange)
	}
	return cellView(cell), nil
}

// ChunkCells copies the cells of one chunk.
func (s *Session) ChunkCells(chunk int) ([]CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := s.grid.ChunkCells(chunk)
	if cells == nil {
		return nil, fmt.Errorf("chunk %d: %w", chunk, ErrOutOfRange)
	}
	out := make([]CellView, len(cells))
	for i, c := range cells {
		out[i] = cellView(c)
	}
	return out, nil
}

// Status returns a summary of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Width:        s.grid.CellCountX(),
		Height:       s.grid.CellCountZ(),
		Chunks:       s.grid.ChunkCount(),
		Units:        len(s.grid.Units()),
		HasPath:      s.searcher.HasPath(),
		DefaultSpeed: s.defaultSpeed,
	}
	for _, u := range s.grid.Units() {
		if u.Traveling() {
			st.Moving++
		}
	}
	return st
}

// pathView copies the searcher's current path. The caller holds s.mu.
func (s *Session) pathView() PathView {
	path := s.searcher.Path()
	from, to := s.searcher.Endpoints()

	v := PathView{
		From:  from.Coordinates,
		To:    to.Coordinates,
		Cost:  to.Search.Distance,
		Turns: s.searcher.Turn(to),
		Steps: make([]PathStep, len(path)),
	}
	for i, c := range path {
		v.Steps[i] = PathStep{
			Coordinates: c.Coordinates,
			Distance:    c.Search.Distance,
			Turn:        s.searcher.Turn(c),
		}
	}
	return v
}

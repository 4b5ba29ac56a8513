// Package editor serializes every edit, search and save over one map.
// A Session owns the grid and its searcher; world and pathfind types are
// not safe for concurrent use, so all access goes through the session.
package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/hexmap/internal/pathfind"
	"github.com/talgya/hexmap/internal/persistence"
	"github.com/talgya/hexmap/internal/world"
)

// Errors returned by session operations.
var (
	ErrInvalidMapSize = errors.New("map size must be a positive multiple of the chunk size")
	ErrNoPath         = errors.New("no path")
	ErrNoUnit         = errors.New("no unit on cell")
	ErrCellOccupied   = errors.New("cell is occupied")
	ErrOutOfRange     = errors.New("out of range")
)

// Store is a library of named maps.
type Store interface {
	SaveMap(name string, g *world.Grid) (persistence.MapInfo, error)
	LoadMap(name string, g *world.Grid) (persistence.MapInfo, error)
}

// Session is a map being edited.
type Session struct {
	mu       sync.Mutex
	grid     *world.Grid
	searcher *pathfind.Searcher

	defaultSpeed int
}

// NewSession creates a session over a fresh flat map.
func NewSession(width, height, defaultSpeed int) (*Session, error) {
	g, err := world.NewGrid(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidMapSize, width, height)
	}
	if defaultSpeed <= 0 {
		defaultSpeed = 24
	}
	return &Session{
		grid:         g,
		searcher:     pathfind.New(g),
		defaultSpeed: defaultSpeed,
	}, nil
}

// DefaultSpeed is the speed used when a search asks for none.
func (s *Session) DefaultSpeed() int {
	return s.defaultSpeed
}

// NewMap replaces the map with a flat one. The current map is kept when
// the size is invalid.
func (s *Session) NewMap(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.grid.CreateMap(width, height) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidMapSize, width, height)
	}
	s.searcher.ClearPath()
	slog.Info("map created", "width", width, "height", height)
	return nil
}

// Generate replaces the map with procedural terrain of the same size.
func (s *Session) Generate(cfg world.GenConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.grid.CreateMap(s.grid.CellCountX(), s.grid.CellCountZ())
	s.searcher.ClearPath()
	world.Generate(s.grid, cfg)

	counts := world.TerrainCounts(s.grid)
	attrs := []any{"seed", cfg.Seed, "elapsed", time.Since(start)}
	for t := world.TerrainSand; t <= world.TerrainSnow; t++ {
		attrs = append(attrs, world.TerrainName(t), counts[t])
	}
	slog.Info("map generated", attrs...)
}

// Edit applies b around center. When dragFrom is a neighbor of center the
// edit is a drag, which draws rivers and roads across the shared edge.
// It returns the number of cells edited.
func (s *Session) Edit(b Brush, center world.Coordinates, dragFrom *world.Coordinates) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.grid.CellAt(center)
	if c == nil {
		return 0, fmt.Errorf("cell %v: %w", center, ErrOutOfRange)
	}
	var drag Drag
	if dragFrom != nil {
		drag = DragBetween(s.grid.CellAt(*dragFrom), c)
	}

	// Edits may invalidate the remembered path's distances.
	s.searcher.ClearPath()
	return b.EditCells(s.grid, center, drag), nil
}

// FindPath searches between two cells and remembers the result. A speed
// of zero or less selects the default speed.
func (s *Session) FindPath(from, to world.Coordinates, speed int) (PathView, error) {
	if speed <= 0 {
		speed = s.defaultSpeed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fromCell, toCell, err := s.cellPair(from, to)
	if err != nil {
		return PathView{}, err
	}

	start := time.Now()
	_, ok := s.searcher.FindPath(fromCell, toCell, speed)
	slog.Debug("path search", "from", from, "to", to, "speed", speed, "found", ok, "elapsed", time.Since(start))
	if !ok {
		return PathView{}, fmt.Errorf("%v to %v: %w", from, to, ErrNoPath)
	}
	return s.pathView(), nil
}

// ClearPath forgets the remembered path.
func (s *Session) ClearPath() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searcher.ClearPath()
}

// AddUnit places a unit on the cell at c.
func (s *Session) AddUnit(c world.Coordinates, orientation float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.grid.CellAt(c)
	if cell == nil {
		return fmt.Errorf("cell %v: %w", c, ErrOutOfRange)
	}
	if s.grid.AddUnit(cell, orientation) == nil {
		return fmt.Errorf("cell %v: %w", c, ErrCellOccupied)
	}
	s.searcher.ClearPath()
	return nil
}

// RemoveUnit removes the unit standing on c.
func (s *Session) RemoveUnit(c world.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.grid.CellAt(c)
	if cell == nil {
		return fmt.Errorf("cell %v: %w", c, ErrOutOfRange)
	}
	if cell.Unit() == nil {
		return fmt.Errorf("cell %v: %w", c, ErrNoUnit)
	}
	s.grid.RemoveUnit(cell.Unit())
	s.searcher.ClearPath()
	return nil
}

// MoveUnit sends the unit on from along the shortest path to to. The unit
// arrives at once; Tick animates the walk.
func (s *Session) MoveUnit(from, to world.Coordinates, speed int) (PathView, error) {
	if speed <= 0 {
		speed = s.defaultSpeed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fromCell, toCell, err := s.cellPair(from, to)
	if err != nil {
		return PathView{}, err
	}
	unit := fromCell.Unit()
	if unit == nil {
		return PathView{}, fmt.Errorf("cell %v: %w", from, ErrNoUnit)
	}
	if toCell.Unit() != nil {
		return PathView{}, fmt.Errorf("cell %v: %w", to, ErrCellOccupied)
	}
	if !unit.IsValidDestination(toCell) {
		return PathView{}, fmt.Errorf("%v to %v: %w", from, to, ErrNoPath)
	}

	path, ok := s.searcher.FindPath(fromCell, toCell, speed)
	if !ok {
		return PathView{}, fmt.Errorf("%v to %v: %w", from, to, ErrNoPath)
	}
	view := s.pathView()
	unit.Travel(path)
	s.searcher.ClearPath()

	slog.Info("unit moved", "from", from, "to", to, "cells", len(path), "turns", view.Turns)
	return view, nil
}

// Save writes the map to w.
func (s *Session) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persistence.Encode(w, s.grid)
}

// Load replaces the map with one read from r. The current map is kept
// when r does not hold a valid map.
func (s *Session) Load(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := persistence.Load(r, s.grid); err != nil {
		return err
	}
	s.searcher.ClearPath()
	return nil
}

// SaveTo stores the map in a library under name.
func (s *Session) SaveTo(store Store, name string) (persistence.MapInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.SaveMap(name, s.grid)
}

// LoadFrom replaces the map with the one saved in a library under name.
func (s *Session) LoadFrom(store Store, name string) (persistence.MapInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := store.LoadMap(name, s.grid)
	if err != nil {
		return info, err
	}
	s.searcher.ClearPath()
	slog.Info("map loaded", "name", name, "width", info.Width, "height", info.Height)
	return info, nil
}

// Export writes the map to a compressed map file.
func (s *Session) Export(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persistence.WriteFile(path, s.grid)
}

// Import replaces the map with a compressed map file.
func (s *Session) Import(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := persistence.ReadFile(path, s.grid); err != nil {
		return err
	}
	s.searcher.ClearPath()
	return nil
}

// Tick steps the travel animation of every moving unit and reports
// whether any unit is still moving.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.AdvanceUnits()
}

// DrainDirty returns the chunks changed since the last call.
func (s *Session) DrainDirty() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.DirtyChunks()
}

func (s *Session) cellPair(from, to world.Coordinates) (*world.Cell, *world.Cell, error) {
	fromCell := s.grid.CellAt(from)
	if fromCell == nil {
		return nil, nil, fmt.Errorf("cell %v: %w", from, ErrOutOfRange)
	}
	toCell := s.grid.CellAt(to)
	if toCell == nil {
		return nil, nil, fmt.Errorf("cell %v: %w", to, ErrOutOfRange)
	}
	return fromCell, toCell, nil
}

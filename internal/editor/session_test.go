package editor

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/talgya/hexmap/internal/persistence"
	"github.com/talgya/hexmap/internal/world"
)

func newSession(t *testing.T, width, height int) *Session {
	t.Helper()
	s, err := NewSession(width, height, 24)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func at(col, row int) world.Coordinates {
	return world.FromOffset(col, row)
}

func TestNewSessionRejectsBadSize(t *testing.T) {
	if _, err := NewSession(7, 5, 24); !errors.Is(err, ErrInvalidMapSize) {
		t.Fatalf("err = %v, want ErrInvalidMapSize", err)
	}
}

func TestNewMapKeepsMapOnBadSize(t *testing.T) {
	s := newSession(t, 10, 10)
	if err := s.NewMap(3, 3); !errors.Is(err, ErrInvalidMapSize) {
		t.Fatalf("err = %v, want ErrInvalidMapSize", err)
	}
	if st := s.Status(); st.Width != 10 || st.Height != 10 {
		t.Fatalf("map resized to %dx%d", st.Width, st.Height)
	}
	if err := s.NewMap(15, 5); err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	if st := s.Status(); st.Width != 15 || st.Height != 5 || st.Chunks != 3 {
		t.Fatalf("status after NewMap = %+v", st)
	}
}

func TestEditAndCell(t *testing.T) {
	s := newSession(t, 10, 10)
	s.DrainDirty()

	n, err := s.Edit(Brush{Elevation: intp(2), Size: 1}, at(4, 4), nil)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if n != 7 {
		t.Fatalf("edited %d cells, want 7", n)
	}
	c, err := s.Cell(at(4, 4))
	if err != nil || c.Elevation != 2 {
		t.Fatalf("Cell = %+v, %v", c, err)
	}
	if len(s.DrainDirty()) == 0 {
		t.Fatalf("edit did not mark any chunk dirty")
	}
	if len(s.DrainDirty()) != 0 {
		t.Fatalf("DrainDirty did not reset")
	}

	if _, err := s.Edit(Brush{}, world.Coordinates{X: 50, Z: 50}, nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if _, err := s.Edit(Brush{Size: -2}, at(1, 1), nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestEditDrag(t *testing.T) {
	s := newSession(t, 10, 10)
	from := at(4, 4)
	to := at(5, 4)
	if _, err := s.Edit(Brush{Road: Yes}, to, &from); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	c, _ := s.Cell(from)
	if !c.Roads[world.E] {
		t.Fatalf("drag did not draw a road: %+v", c.Roads)
	}
}

func TestFindPath(t *testing.T) {
	s := newSession(t, 10, 10)

	p, err := s.FindPath(at(0, 0), at(3, 0), 0)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(p.Steps) != 4 || p.Cost != 15 || p.Turns != 0 {
		t.Fatalf("path = %+v", p)
	}
	if p.Steps[0].Coordinates != at(0, 0) || p.Steps[3].Coordinates != at(3, 0) {
		t.Fatalf("path endpoints wrong: %+v", p.Steps)
	}

	if v := s.Snapshot(); v.Path == nil || len(v.Path.Steps) != 4 {
		t.Fatalf("snapshot lost the path")
	}
	s.ClearPath()
	if s.Status().HasPath {
		t.Fatalf("ClearPath did not forget the path")
	}
}

func TestFindPathErrors(t *testing.T) {
	s := newSession(t, 10, 10)
	if _, err := s.Edit(Brush{WaterLevel: intp(1)}, at(5, 5), nil); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if _, err := s.FindPath(at(0, 0), at(5, 5), 24); !errors.Is(err, ErrNoPath) {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
	if _, err := s.FindPath(at(0, 0), world.Coordinates{X: -9, Z: 0}, 24); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestUnits(t *testing.T) {
	s := newSession(t, 10, 10)
	if err := s.AddUnit(at(1, 1), 45); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if err := s.AddUnit(at(1, 1), 0); !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("err = %v, want ErrCellOccupied", err)
	}
	if err := s.RemoveUnit(at(2, 2)); !errors.Is(err, ErrNoUnit) {
		t.Fatalf("err = %v, want ErrNoUnit", err)
	}
	if err := s.AddUnit(world.Coordinates{X: 99, Z: 0}, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if err := s.RemoveUnit(at(1, 1)); err != nil {
		t.Fatalf("RemoveUnit: %v", err)
	}
	if s.Status().Units != 0 {
		t.Fatalf("unit not removed")
	}
}

func TestMoveUnit(t *testing.T) {
	s := newSession(t, 10, 10)
	if err := s.AddUnit(at(0, 0), 0); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if err := s.AddUnit(at(9, 9), 0); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}

	if _, err := s.MoveUnit(at(5, 5), at(6, 6), 0); !errors.Is(err, ErrNoUnit) {
		t.Fatalf("err = %v, want ErrNoUnit", err)
	}
	if _, err := s.MoveUnit(at(0, 0), at(9, 9), 0); !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("err = %v, want ErrCellOccupied", err)
	}

	p, err := s.MoveUnit(at(0, 0), at(4, 0), 0)
	if err != nil {
		t.Fatalf("MoveUnit: %v", err)
	}
	if len(p.Steps) != 5 {
		t.Fatalf("path has %d steps, want 5", len(p.Steps))
	}
	if s.Status().HasPath {
		t.Fatalf("moving a unit should clear the path")
	}

	dst, _ := s.Cell(at(4, 0))
	src, _ := s.Cell(at(0, 0))
	if !dst.Unit || src.Unit {
		t.Fatalf("unit did not arrive")
	}
	if s.Status().Moving != 1 {
		t.Fatalf("unit should be traveling")
	}

	ticks := 0
	for s.Tick() {
		ticks++
		if ticks > 10 {
			t.Fatalf("travel never ended")
		}
	}
	if s.Status().Moving != 0 {
		t.Fatalf("unit still traveling after the animation ended")
	}
}

func TestSaveLoad(t *testing.T) {
	s := newSession(t, 10, 10)
	if _, err := s.Edit(Brush{Elevation: intp(3), Size: 2}, at(5, 5), nil); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := s.AddUnit(at(0, 0), 90); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	want := s.Snapshot()

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := newSession(t, 5, 5)
	if err := other.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := other.Snapshot()
	if got.Width != want.Width || len(got.Units) != 1 || got.Cells[55].Elevation != want.Cells[55].Elevation {
		t.Fatalf("loaded map differs")
	}

	if err := other.Load(bytes.NewReader([]byte{9, 0, 0, 0})); !errors.Is(err, persistence.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
	if other.Status().Width != 10 {
		t.Fatalf("failed load changed the map")
	}
}

func TestLibraryAndFiles(t *testing.T) {
	dir := t.TempDir()
	db, err := persistence.Open(filepath.Join(dir, "maps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s := newSession(t, 10, 5)
	if _, err := s.Edit(Brush{Elevation: intp(1)}, at(2, 2), nil); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if _, err := s.SaveTo(db, "valley"); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	file := filepath.Join(dir, "export", "valley"+persistence.FileExt)
	if err := s.Export(file); err != nil {
		t.Fatalf("Export: %v", err)
	}

	fromDB := newSession(t, 5, 5)
	if _, err := fromDB.LoadFrom(db, "valley"); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	fromFile := newSession(t, 5, 5)
	if err := fromFile.Import(file); err != nil {
		t.Fatalf("Import: %v", err)
	}

	for _, other := range []*Session{fromDB, fromFile} {
		c, err := other.Cell(at(2, 2))
		if err != nil || c.Elevation != 1 {
			t.Fatalf("restored cell = %+v, %v", c, err)
		}
	}

	if _, err := fromDB.LoadFrom(db, "missing"); !errors.Is(err, persistence.ErrMapNotFound) {
		t.Fatalf("err = %v, want ErrMapNotFound", err)
	}
}

func TestGenerateClearsEdits(t *testing.T) {
	s := newSession(t, 20, 15)
	if err := s.AddUnit(at(3, 3), 0); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if _, err := s.Edit(Brush{Walled: Yes, Size: MaxBrushSize}, at(10, 7), nil); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	cfg := world.DefaultGenConfig()
	cfg.Seed = 11
	s.Generate(cfg)

	v := s.Snapshot()
	if len(v.Units) != 0 {
		t.Fatalf("units survived generation")
	}
	for _, c := range v.Cells {
		if c.Walled {
			t.Fatalf("walls survived generation at %v", c.Coordinates)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newSession(t, 20, 15)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Edit(Brush{Elevation: intp(j % 2), Size: 1}, at(i*4+2, 7), nil)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.FindPath(at(0, 0), at(19, 14), 24)
				s.Snapshot()
			}
		}()
	}
	wg.Wait()
}

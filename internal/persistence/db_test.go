package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "maps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadMap(t *testing.T) {
	db := openTestDB(t)
	src := sampleGrid(t)

	info, err := db.SaveMap("island", src)
	if err != nil {
		t.Fatalf("SaveMap: %v", err)
	}
	if info.ID == "" || info.Width != 10 || info.Height != 10 || info.Units != 2 || info.Version != FormatVersion {
		t.Fatalf("unexpected info %+v", info)
	}

	dst := newGrid(t, 5, 5)
	loaded, err := db.LoadMap("island", dst)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if loaded.ID != info.ID || loaded.Size != info.Size {
		t.Fatalf("loaded info %+v, saved %+v", loaded, info)
	}
	assertSameMap(t, dst, src)
}

func TestSaveMapKeepsID(t *testing.T) {
	db := openTestDB(t)
	g := newGrid(t, 5, 5)

	first, err := db.SaveMap("draft", g)
	if err != nil {
		t.Fatalf("SaveMap: %v", err)
	}
	g.CellAtOffset(1, 1).SetElevation(2)
	second, err := db.SaveMap("draft", g)
	if err != nil {
		t.Fatalf("SaveMap again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ID changed on overwrite: %s -> %s", first.ID, second.ID)
	}

	maps, err := db.ListMaps()
	if err != nil {
		t.Fatalf("ListMaps: %v", err)
	}
	if len(maps) != 1 {
		t.Fatalf("ListMaps = %d maps, want 1", len(maps))
	}

	dst := newGrid(t, 5, 5)
	if _, err := db.LoadMap("draft", dst); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if dst.CellAtOffset(1, 1).Elevation() != 2 {
		t.Fatalf("overwrite not stored")
	}
}

func TestListAndDeleteMaps(t *testing.T) {
	db := openTestDB(t)
	g := newGrid(t, 5, 5)

	maps, err := db.ListMaps()
	if err != nil || len(maps) != 0 {
		t.Fatalf("empty library: %v %v", maps, err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if _, err := db.SaveMap(name, g); err != nil {
			t.Fatalf("SaveMap %s: %v", name, err)
		}
	}
	if err := db.DeleteMap("b"); err != nil {
		t.Fatalf("DeleteMap: %v", err)
	}
	if err := db.DeleteMap("b"); !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("second delete err = %v, want ErrMapNotFound", err)
	}

	maps, err = db.ListMaps()
	if err != nil {
		t.Fatalf("ListMaps: %v", err)
	}
	names := map[string]bool{}
	for _, m := range maps {
		names[m.Name] = true
	}
	if len(maps) != 2 || !names["a"] || !names["c"] {
		t.Fatalf("ListMaps = %+v", maps)
	}
}

func TestLoadMissingMap(t *testing.T) {
	db := openTestDB(t)
	g := newGrid(t, 5, 5)
	if _, err := db.LoadMap("nope", g); !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("err = %v, want ErrMapNotFound", err)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_map", "island"); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	v, err := db.GetMeta("last_map")
	if err != nil || v != "island" {
		t.Fatalf("GetMeta = %q, %v", v, err)
	}
}

func TestWriteAndReadFile(t *testing.T) {
	src := sampleGrid(t)
	path := filepath.Join(t.TempDir(), "nested", "island"+FileExt)

	if err := WriteFile(path, src); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := newGrid(t, 5, 5)
	if err := ReadFile(path, dst); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	assertSameMap(t, dst, src)
}

func TestFailedWriteKeepsExistingFile(t *testing.T) {
	src := sampleGrid(t)
	path := filepath.Join(t.TempDir(), "island"+FileExt)
	if err := WriteFile(path, src); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bad := newGrid(t, 5, 5)
	bad.CellAtOffset(2, 2).SetElevation(300)
	if err := WriteFile(path, bad); !errors.Is(err, ErrUnencodable) {
		t.Fatalf("err = %v, want ErrUnencodable", err)
	}

	dst := newGrid(t, 5, 5)
	if err := ReadFile(path, dst); err != nil {
		t.Fatalf("ReadFile after failed write: %v", err)
	}
	assertSameMap(t, dst, src)
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestReadFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk"+FileExt)
	if err := os.WriteFile(path, []byte("not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReadFile(path, newGrid(t, 5, 5)); err == nil {
		t.Fatalf("expected an error for a non-zstd file")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if err := Decompress([]byte("garbage"), newGrid(t, 5, 5)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

package persistence

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hexmap/internal/world"
)

// FileExt is the extension of exported map files.
const FileExt = ".map.zst"

// WriteFile exports g to a zstd-compressed map file, creating parent
// directories as needed. The file is written beside path and renamed into
// place, so a failed export leaves any existing file intact.
func WriteFile(path string, g *world.Grid) error {
	data, err := Compress(g)
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile loads a map file written by WriteFile into g.
func ReadFile(path string, g *world.Grid) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	return Load(dec, g)
}

// Compress encodes g and returns the zstd-compressed bytes.
func Compress(g *world.Grid) ([]byte, error) {
	var raw bytes.Buffer
	if err := Encode(&raw, g); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw.Bytes(), nil), nil
}

// Decompress loads bytes produced by Compress into g.
func Decompress(data []byte, g *world.Grid) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return Load(bytes.NewReader(raw), g)
}

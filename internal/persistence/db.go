// Package persistence stores hex maps: a versioned binary format, zstd
// map files, and a SQLite library of named maps.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexmap/internal/world"
)

// ErrMapNotFound is returned when no saved map has the requested name.
var ErrMapNotFound = errors.New("map not found")

// MapInfo describes a saved map without its cell data.
type MapInfo struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Width   int    `db:"width" json:"width"`
	Height  int    `db:"height" json:"height"`
	Version int    `db:"format_version" json:"format_version"`
	Units   int    `db:"units" json:"units"`
	Size    int    `db:"size" json:"size_bytes"`
	SavedAt int64  `db:"saved_at" json:"saved_at"`
}

// DB wraps a SQLite connection holding the map library.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		format_version INTEGER NOT NULL,
		units INTEGER NOT NULL,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS library_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maps_saved_at ON maps(saved_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMap stores g under name, replacing any map already saved with that
// name. The map keeps its ID across saves.
func (db *DB) SaveMap(name string, g *world.Grid) (MapInfo, error) {
	data, err := Compress(g)
	if err != nil {
		return MapInfo{}, fmt.Errorf("compress map %q: %w", name, err)
	}

	info := MapInfo{
		ID:      uuid.NewString(),
		Name:    name,
		Width:   g.CellCountX(),
		Height:  g.CellCountZ(),
		Version: FormatVersion,
		Units:   len(g.Units()),
		Size:    len(data),
		SavedAt: time.Now().Unix(),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return MapInfo{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO maps
		(id, name, width, height, format_version, units, data, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			format_version = excluded.format_version,
			units = excluded.units,
			data = excluded.data,
			saved_at = excluded.saved_at`,
		info.ID, info.Name, info.Width, info.Height, info.Version, info.Units, data, info.SavedAt,
	)
	if err != nil {
		return MapInfo{}, fmt.Errorf("insert map %q: %w", name, err)
	}
	if err := tx.Get(&info.ID, "SELECT id FROM maps WHERE name = ?", name); err != nil {
		return MapInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return MapInfo{}, err
	}

	slog.Info("map saved", "name", name, "id", info.ID, "width", info.Width, "height", info.Height, "bytes", info.Size)
	return info, nil
}

// LoadMap loads the map saved under name into g.
func (db *DB) LoadMap(name string, g *world.Grid) (MapInfo, error) {
	var row struct {
		MapInfo
		Data []byte `db:"data"`
	}
	err := db.conn.Get(&row, `SELECT id, name, width, height, format_version, units,
		length(data) AS size, saved_at, data FROM maps WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return MapInfo{}, fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	if err != nil {
		return MapInfo{}, err
	}

	if err := Decompress(row.Data, g); err != nil {
		return MapInfo{}, fmt.Errorf("load map %q: %w", name, err)
	}
	return row.MapInfo, nil
}

// ListMaps returns every saved map, most recently saved first.
func (db *DB) ListMaps() ([]MapInfo, error) {
	maps := []MapInfo{}
	err := db.conn.Select(&maps, `SELECT id, name, width, height, format_version, units,
		length(data) AS size, saved_at FROM maps ORDER BY saved_at DESC, name`)
	return maps, err
}

// DeleteMap removes the map saved under name.
func (db *DB) DeleteMap(name string) error {
	res, err := db.conn.Exec("DELETE FROM maps WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	return nil
}

// SaveMeta stores a key-value pair in library metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO library_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM library_meta WHERE key = ?", key)
	return value, err
}

package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/talgya/hexmap/internal/world"
)

// FormatVersion is the map format written by Encode.
//
//	0: cells only, fixed 20x15 map
//	1: int32 width, int32 height, cells
//	2: as 1, followed by int32 unit count and the units
const FormatVersion = 2

// Errors reported while reading or writing maps.
var (
	ErrUnsupportedVersion = errors.New("unsupported map format version")
	ErrCorrupt            = errors.New("corrupt map data")
	ErrUnencodable        = errors.New("value does not fit the map format")
)

const (
	riverFlag   = 128
	maxMapCells = 1 << 20
)

// Encode writes g in the current map format. All integers are
// little-endian; cell fields are single bytes.
func Encode(w io.Writer, g *world.Grid) error {
	bw := bufio.NewWriter(w)

	writeInt32(bw, FormatVersion)
	writeInt32(bw, int32(g.CellCountX()))
	writeInt32(bw, int32(g.CellCountZ()))

	block := make([]byte, 11)
	for _, c := range g.Cells() {
		if err := encodeCell(block, c.Data()); err != nil {
			return fmt.Errorf("cell %v: %w", c.Coordinates, err)
		}
		if _, err := bw.Write(block); err != nil {
			return err
		}
	}

	units := g.Units()
	writeInt32(bw, int32(len(units)))
	for _, u := range units {
		c := u.Location().Coordinates
		writeInt32(bw, int32(c.X))
		writeInt32(bw, int32(c.Z))
		if err := binary.Write(bw, binary.LittleEndian, float32(u.Orientation)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeCell(block []byte, d world.CellData) error {
	fields := []struct {
		name  string
		value int
	}{
		{"terrain", d.TerrainTypeIndex},
		{"elevation", d.Elevation},
		{"water level", d.WaterLevel},
		{"urban level", d.UrbanLevel},
		{"farm level", d.FarmLevel},
		{"plant level", d.PlantLevel},
		{"special index", d.SpecialIndex},
	}
	for i, f := range fields {
		if f.value < 0 || f.value > math.MaxUint8 {
			return fmt.Errorf("%s %d: %w", f.name, f.value, ErrUnencodable)
		}
		block[i] = byte(f.value)
	}

	block[7] = 0
	if d.Walled {
		block[7] = 1
	}

	block[8] = 0
	if d.HasIncomingRiver {
		block[8] = byte(d.IncomingRiver) + riverFlag
	}
	block[9] = 0
	if d.HasOutgoingRiver {
		block[9] = byte(d.OutgoingRiver) + riverFlag
	}

	var roads byte
	for i, r := range d.Roads {
		if r {
			roads |= 1 << i
		}
	}
	block[10] = roads
	return nil
}

func decodeCell(block []byte) (world.CellData, error) {
	d := world.CellData{
		TerrainTypeIndex: int(block[0]),
		Elevation:        int(block[1]),
		WaterLevel:       int(block[2]),
		UrbanLevel:       int(block[3]),
		FarmLevel:        int(block[4]),
		PlantLevel:       int(block[5]),
		SpecialIndex:     int(block[6]),
	}

	switch block[7] {
	case 0:
	case 1:
		d.Walled = true
	default:
		return d, fmt.Errorf("%w: walled flag %d", ErrCorrupt, block[7])
	}

	var err error
	if d.HasIncomingRiver, d.IncomingRiver, err = decodeRiver(block[8]); err != nil {
		return d, err
	}
	if d.HasOutgoingRiver, d.OutgoingRiver, err = decodeRiver(block[9]); err != nil {
		return d, err
	}

	roads := block[10]
	if roads&^0x3f != 0 {
		return d, fmt.Errorf("%w: road mask %#x", ErrCorrupt, roads)
	}
	for i := range d.Roads {
		d.Roads[i] = roads&(1<<i) != 0
	}
	return d, nil
}

func decodeRiver(b byte) (bool, world.Direction, error) {
	if b == 0 {
		return false, 0, nil
	}
	d := world.Direction(b - riverFlag)
	if b < riverFlag || !d.Valid() {
		return false, 0, fmt.Errorf("%w: river byte %d", ErrCorrupt, b)
	}
	return true, d, nil
}

type unitRecord struct {
	coordinates world.Coordinates
	orientation float64
}

// Decode reads a map in any supported format into a new grid. The data
// is fully validated before the grid is returned.
func Decode(r io.Reader) (*world.Grid, error) {
	br := bufio.NewReader(r)

	version, err := readInt32(br)
	if err != nil {
		return nil, err
	}
	if version < 0 || version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	width, height := int32(world.DefaultCellCountX), int32(world.DefaultCellCountZ)
	if version >= 1 {
		if width, err = readInt32(br); err != nil {
			return nil, err
		}
		if height, err = readInt32(br); err != nil {
			return nil, err
		}
	}
	if !world.ValidSize(int(width), int(height)) || int64(width)*int64(height) > maxMapCells {
		return nil, fmt.Errorf("%w: map size %dx%d", ErrCorrupt, width, height)
	}

	g, err := world.NewGrid(int(width), int(height))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	block := make([]byte, 11)
	for _, c := range g.Cells() {
		if _, err := io.ReadFull(br, block); err != nil {
			return nil, truncated(err)
		}
		d, err := decodeCell(block)
		if err != nil {
			return nil, fmt.Errorf("cell %v: %w", c.Coordinates, err)
		}
		c.Restore(d)
	}
	if err := validateEdges(g); err != nil {
		return nil, err
	}

	if version >= 2 {
		units, err := readUnits(br)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			c := g.CellAt(u.coordinates)
			if c == nil {
				return nil, fmt.Errorf("%w: unit outside map at %v", ErrCorrupt, u.coordinates)
			}
			if g.AddUnit(c, u.orientation) == nil {
				return nil, fmt.Errorf("%w: two units at %v", ErrCorrupt, u.coordinates)
			}
		}
	}

	return g, nil
}

func readUnits(br *bufio.Reader) ([]unitRecord, error) {
	count, err := readInt32(br)
	if err != nil {
		return nil, err
	}
	if count < 0 || count > maxMapCells {
		return nil, fmt.Errorf("%w: unit count %d", ErrCorrupt, count)
	}

	units := make([]unitRecord, 0, count)
	for i := int32(0); i < count; i++ {
		x, err := readInt32(br)
		if err != nil {
			return nil, err
		}
		z, err := readInt32(br)
		if err != nil {
			return nil, err
		}
		var orientation float32
		if err := binary.Read(br, binary.LittleEndian, &orientation); err != nil {
			return nil, truncated(err)
		}
		units = append(units, unitRecord{
			coordinates: world.Coordinates{X: int(x), Z: int(z)},
			orientation: float64(orientation),
		})
	}
	return units, nil
}

// validateEdges rejects edge states the cell setters never produce: rivers
// and roads leaving the map, one-sided rivers or roads, rivers flowing
// uphill, roads sharing an edge with a river or climbing a cliff, and
// special features on river or road cells.
func validateEdges(g *world.Grid) error {
	for _, c := range g.Cells() {
		if c.HasOutgoingRiver() {
			d := c.OutgoingRiver()
			n := c.Neighbor(d)
			switch {
			case n == nil:
				return fmt.Errorf("%w: outgoing river off the map at %v", ErrCorrupt, c.Coordinates)
			case !n.HasIncomingRiver() || n.IncomingRiver() != d.Opposite():
				return fmt.Errorf("%w: outgoing river at %v has no matching inflow", ErrCorrupt, c.Coordinates)
			case !c.IsValidRiverDestination(n):
				return fmt.Errorf("%w: river flows uphill at %v", ErrCorrupt, c.Coordinates)
			}
		}
		if c.HasIncomingRiver() {
			d := c.IncomingRiver()
			n := c.Neighbor(d)
			switch {
			case n == nil:
				return fmt.Errorf("%w: incoming river off the map at %v", ErrCorrupt, c.Coordinates)
			case !n.HasOutgoingRiver() || n.OutgoingRiver() != d.Opposite():
				return fmt.Errorf("%w: incoming river at %v has no matching outflow", ErrCorrupt, c.Coordinates)
			}
		}
		if c.IsSpecial() && (c.HasRiver() || c.HasRoads()) {
			return fmt.Errorf("%w: special feature on a river or road at %v", ErrCorrupt, c.Coordinates)
		}
		for _, d := range world.Directions {
			if !c.HasRoadThroughEdge(d) {
				continue
			}
			n := c.Neighbor(d)
			switch {
			case n == nil:
				return fmt.Errorf("%w: road off the map at %v", ErrCorrupt, c.Coordinates)
			case !n.HasRoadThroughEdge(d.Opposite()):
				return fmt.Errorf("%w: one-sided road at %v toward %v", ErrCorrupt, c.Coordinates, d)
			case c.HasRiverThroughEdge(d):
				return fmt.Errorf("%w: road and river share an edge at %v", ErrCorrupt, c.Coordinates)
			case c.ElevationDifference(d) > 1:
				return fmt.Errorf("%w: road across a cliff at %v", ErrCorrupt, c.Coordinates)
			}
		}
	}
	return nil
}

// Load reads a map from r into g, resizing g when needed. On error g is
// left unchanged.
func Load(r io.Reader, g *world.Grid) error {
	loaded, err := Decode(r)
	if err != nil {
		return err
	}

	if loaded.CellCountX() != g.CellCountX() || loaded.CellCountZ() != g.CellCountZ() {
		if !g.CreateMap(loaded.CellCountX(), loaded.CellCountZ()) {
			return fmt.Errorf("%w: map size %dx%d", ErrCorrupt, loaded.CellCountX(), loaded.CellCountZ())
		}
	} else {
		g.ClearUnits()
	}

	cells := g.Cells()
	for i, c := range loaded.Cells() {
		cells[i].Restore(c.Data())
	}
	for _, u := range loaded.Units() {
		g.AddUnit(g.CellAt(u.Location().Coordinates), u.Orientation)
	}
	g.RefreshAll()
	return nil
}

func writeInt32(w *bufio.Writer, v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	w.Write(buf[:]) // Errors are sticky and surface at Flush.
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of data", ErrCorrupt)
	}
	return err
}

package world

// Layout and terrain constants shared by the grid and its cells.
const (
	OuterRadius   = 10.0
	InnerRadius   = OuterRadius * 0.866025404
	ElevationStep = 2.0

	// Chunk dimensions in cells. Map sizes must be multiples of these.
	ChunkSizeX = 5
	ChunkSizeZ = 5

	StreamBedElevationOffset = -1.75
	WaterElevationOffset     = -0.5
)

// EdgeType classifies the connection between two neighboring cells.
type EdgeType uint8

const (
	Flat  EdgeType = iota // Same elevation
	Slope                 // Elevations differ by exactly one
	Cliff                 // Anything steeper
)

// String returns the name of the edge type.
func (t EdgeType) String() string {
	switch t {
	case Flat:
		return "Flat"
	case Slope:
		return "Slope"
	default:
		return "Cliff"
	}
}

// GetEdgeType classifies the edge between two elevations.
func GetEdgeType(elevation1, elevation2 int) EdgeType {
	if elevation1 == elevation2 {
		return Flat
	}
	delta := elevation2 - elevation1
	if delta == 1 || delta == -1 {
		return Slope
	}
	return Cliff
}

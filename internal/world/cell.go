package world

import "math"

// UnsetElevation marks a cell whose elevation has never been assigned.
const UnsetElevation = math.MinInt

// Vec3 is a point in grid space. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SearchState holds per-cell scratch data written by path searches.
// It is only meaningful for the search phase that wrote it and is never
// persisted.
type SearchState struct {
	Distance  int
	Phase     int
	Heuristic int
	PathFrom  *Cell

	// NextWithSamePriority links cells sharing a frontier bucket.
	NextWithSamePriority *Cell
}

// Priority is the frontier ordering key.
func (s *SearchState) Priority() int {
	return s.Distance + s.Heuristic
}

// Cell is a single hex of the grid. Cells are created and owned by a Grid;
// neighbor links are non-owning.
//
// Setters enforce the terrain rules: a request that would violate them is
// ignored, and setting a value equal to the current one does nothing.
type Cell struct {
	Coordinates Coordinates
	Index       int // Position in the owning grid's cell array

	grid  *Grid
	chunk int

	neighbors [6]*Cell
	x, z      float64

	terrainTypeIndex int
	elevation        int
	waterLevel       int

	urbanLevel, farmLevel, plantLevel int
	specialIndex                      int
	walled                            bool

	hasIncomingRiver, hasOutgoingRiver bool
	incomingRiver, outgoingRiver       Direction

	roads [6]bool

	unit *Unit

	Search SearchState
}

// Chunk returns the index of the refresh chunk the cell belongs to.
func (c *Cell) Chunk() int {
	return c.chunk
}

// Neighbor returns the adjacent cell in direction d, or nil at the map edge.
func (c *Cell) Neighbor(d Direction) *Cell {
	return c.neighbors[d]
}

func (c *Cell) setNeighbor(d Direction, other *Cell) {
	c.neighbors[d] = other
	other.neighbors[d.Opposite()] = c
}

// Position returns the center of the cell in grid space.
func (c *Cell) Position() Vec3 {
	return Vec3{X: c.x, Y: float64(c.elevation) * ElevationStep, Z: c.z}
}

// Unit returns the unit occupying the cell, if any.
func (c *Cell) Unit() *Unit {
	return c.unit
}

// refresh notifies the cell's chunk and every neighboring chunk.
func (c *Cell) refresh() {
	if c.grid == nil {
		return
	}
	c.grid.refreshChunk(c.chunk)
	for _, n := range c.neighbors {
		if n != nil && n.chunk != c.chunk {
			c.grid.refreshChunk(n.chunk)
		}
	}
}

func (c *Cell) refreshSelfOnly() {
	if c.grid == nil {
		return
	}
	c.grid.refreshChunk(c.chunk)
}

// ── Terrain ─────────────────────────────────────────────────────────

// TerrainTypeIndex returns the terrain type painted on the cell.
func (c *Cell) TerrainTypeIndex() int {
	return c.terrainTypeIndex
}

// SetTerrainTypeIndex paints a terrain type.
func (c *Cell) SetTerrainTypeIndex(v int) {
	if c.terrainTypeIndex == v {
		return
	}
	c.terrainTypeIndex = v
	c.refresh()
}

// Elevation returns the cell's elevation level.
func (c *Cell) Elevation() int {
	return c.elevation
}

// SetElevation changes the elevation. Rivers that no longer flow downhill
// and roads that became too steep are removed.
func (c *Cell) SetElevation(v int) {
	if c.elevation == v {
		return
	}
	c.elevation = v
	c.validateRivers()

	for _, d := range Directions {
		if c.roads[d] && c.ElevationDifference(d) > 1 {
			c.setRoad(d, false)
		}
	}

	c.refresh()
}

// ElevationDifference returns the absolute elevation difference with the
// neighbor in direction d, or 0 when there is none.
func (c *Cell) ElevationDifference(d Direction) int {
	n := c.neighbors[d]
	if n == nil {
		return 0
	}
	return abs(c.elevation - n.elevation)
}

// EdgeType classifies the edge toward direction d. A missing neighbor is
// reported as a cliff.
func (c *Cell) EdgeType(d Direction) EdgeType {
	n := c.neighbors[d]
	if n == nil {
		return Cliff
	}
	return GetEdgeType(c.elevation, n.elevation)
}

// EdgeTypeTo classifies the edge between c and other.
func (c *Cell) EdgeTypeTo(other *Cell) EdgeType {
	return GetEdgeType(c.elevation, other.elevation)
}

// ── Water ───────────────────────────────────────────────────────────

// WaterLevel returns the water surface level of the cell.
func (c *Cell) WaterLevel() int {
	return c.waterLevel
}

// SetWaterLevel changes the water level and revalidates rivers.
func (c *Cell) SetWaterLevel(v int) {
	if c.waterLevel == v {
		return
	}
	c.waterLevel = v
	c.validateRivers()
	c.refresh()
}

// IsUnderwater reports whether the water surface is above the cell.
func (c *Cell) IsUnderwater() bool {
	return c.waterLevel > c.elevation
}

// WaterSurfaceY returns the height of the water surface.
func (c *Cell) WaterSurfaceY() float64 {
	return (float64(c.waterLevel) + WaterElevationOffset) * ElevationStep
}

// ── Rivers ──────────────────────────────────────────────────────────

// HasIncomingRiver reports whether a river flows into the cell.
func (c *Cell) HasIncomingRiver() bool { return c.hasIncomingRiver }

// HasOutgoingRiver reports whether a river flows out of the cell.
func (c *Cell) HasOutgoingRiver() bool { return c.hasOutgoingRiver }

// IncomingRiver returns the edge the incoming river crosses.
// Only meaningful when HasIncomingRiver is true.
func (c *Cell) IncomingRiver() Direction { return c.incomingRiver }

// OutgoingRiver returns the edge the outgoing river crosses.
// Only meaningful when HasOutgoingRiver is true.
func (c *Cell) OutgoingRiver() Direction { return c.outgoingRiver }

// HasRiver reports whether any river touches the cell.
func (c *Cell) HasRiver() bool {
	return c.hasIncomingRiver || c.hasOutgoingRiver
}

// HasRiverBeginOrEnd reports whether a river starts or ends here.
func (c *Cell) HasRiverBeginOrEnd() bool {
	return c.hasIncomingRiver != c.hasOutgoingRiver
}

// RiverBeginOrEndDirection returns the single river edge of a source or
// mouth cell.
func (c *Cell) RiverBeginOrEndDirection() Direction {
	if c.hasIncomingRiver {
		return c.incomingRiver
	}
	return c.outgoingRiver
}

// HasRiverThroughEdge reports whether a river crosses the edge toward d.
func (c *Cell) HasRiverThroughEdge(d Direction) bool {
	return c.hasIncomingRiver && c.incomingRiver == d ||
		c.hasOutgoingRiver && c.outgoingRiver == d
}

// RiverSurfaceY returns the height of the river surface.
func (c *Cell) RiverSurfaceY() float64 {
	return (float64(c.elevation) + WaterElevationOffset) * ElevationStep
}

// StreamBedY returns the height of the river bed.
func (c *Cell) StreamBedY() float64 {
	return (float64(c.elevation) + StreamBedElevationOffset) * ElevationStep
}

// IsValidRiverDestination reports whether a river may flow from c into n:
// n must not be higher than c, unless c's water surface sits at n's level.
func (c *Cell) IsValidRiverDestination(n *Cell) bool {
	return n != nil && (c.elevation >= n.elevation || c.waterLevel == n.elevation)
}

// SetOutgoingRiver starts a river flowing toward d. Invalid destinations
// are ignored. A river replaces any road across the same edge and clears
// the special feature of both cells.
func (c *Cell) SetOutgoingRiver(d Direction) {
	if c.hasOutgoingRiver && c.outgoingRiver == d {
		return
	}

	n := c.neighbors[d]
	if !c.IsValidRiverDestination(n) {
		return
	}

	c.RemoveOutgoingRiver()
	if c.hasIncomingRiver && c.incomingRiver == d {
		c.RemoveIncomingRiver()
	}

	c.hasOutgoingRiver = true
	c.outgoingRiver = d
	c.specialIndex = 0

	n.RemoveIncomingRiver()
	n.hasIncomingRiver = true
	n.incomingRiver = d.Opposite()
	n.specialIndex = 0

	c.setRoad(d, false)
}

// RemoveOutgoingRiver removes the outgoing river and the matching incoming
// river of the neighbor.
func (c *Cell) RemoveOutgoingRiver() {
	if !c.hasOutgoingRiver {
		return
	}
	c.hasOutgoingRiver = false
	c.refreshSelfOnly()

	n := c.neighbors[c.outgoingRiver]
	n.hasIncomingRiver = false
	n.refreshSelfOnly()
}

// RemoveIncomingRiver removes the incoming river and the matching outgoing
// river of the neighbor.
func (c *Cell) RemoveIncomingRiver() {
	if !c.hasIncomingRiver {
		return
	}
	c.hasIncomingRiver = false
	c.refreshSelfOnly()

	n := c.neighbors[c.incomingRiver]
	n.hasOutgoingRiver = false
	n.refreshSelfOnly()
}

// RemoveRiver removes both river directions.
func (c *Cell) RemoveRiver() {
	c.RemoveOutgoingRiver()
	c.RemoveIncomingRiver()
}

// validateRivers drops rivers that no longer flow to a valid destination.
// Rivers are never recreated.
func (c *Cell) validateRivers() {
	if c.hasOutgoingRiver && !c.IsValidRiverDestination(c.neighbors[c.outgoingRiver]) {
		c.RemoveOutgoingRiver()
	}
	if c.hasIncomingRiver && !c.neighbors[c.incomingRiver].IsValidRiverDestination(c) {
		c.RemoveIncomingRiver()
	}
}

// ── Roads ───────────────────────────────────────────────────────────

// HasRoadThroughEdge reports whether a road crosses the edge toward d.
func (c *Cell) HasRoadThroughEdge(d Direction) bool {
	return c.roads[d]
}

// HasRoads reports whether any road touches the cell.
func (c *Cell) HasRoads() bool {
	for _, r := range c.roads {
		if r {
			return true
		}
	}
	return false
}

// CanAddRoad reports whether AddRoad(d) would build a road.
func (c *Cell) CanAddRoad(d Direction) bool {
	n := c.neighbors[d]
	return n != nil &&
		!c.roads[d] &&
		!c.HasRiverThroughEdge(d) &&
		!c.IsSpecial() && !n.IsSpecial() &&
		c.ElevationDifference(d) <= 1
}

// AddRoad builds a road across the edge toward d. The request is ignored
// when the edge already has a road or a river, when either cell holds a
// special feature, or when the slope is steeper than one level.
func (c *Cell) AddRoad(d Direction) {
	if c.CanAddRoad(d) {
		c.setRoad(d, true)
	}
}

// RemoveRoads removes every road of the cell on both sides of each edge.
func (c *Cell) RemoveRoads() {
	for _, d := range Directions {
		if c.roads[d] {
			c.setRoad(d, false)
		}
	}
}

func (c *Cell) setRoad(d Direction, state bool) {
	c.roads[d] = state
	if n := c.neighbors[d]; n != nil {
		n.roads[d.Opposite()] = state
		n.refreshSelfOnly()
	}
	c.refreshSelfOnly()
}

// ── Features ────────────────────────────────────────────────────────

// UrbanLevel returns the density of urban features.
func (c *Cell) UrbanLevel() int { return c.urbanLevel }

// SetUrbanLevel changes the density of urban features.
func (c *Cell) SetUrbanLevel(v int) {
	if c.urbanLevel != v {
		c.urbanLevel = v
		c.refreshSelfOnly()
	}
}

// FarmLevel returns the density of farm features.
func (c *Cell) FarmLevel() int { return c.farmLevel }

// SetFarmLevel changes the density of farm features.
func (c *Cell) SetFarmLevel(v int) {
	if c.farmLevel != v {
		c.farmLevel = v
		c.refreshSelfOnly()
	}
}

// PlantLevel returns the density of plant features.
func (c *Cell) PlantLevel() int { return c.plantLevel }

// SetPlantLevel changes the density of plant features.
func (c *Cell) SetPlantLevel(v int) {
	if c.plantLevel != v {
		c.plantLevel = v
		c.refreshSelfOnly()
	}
}

// SpecialIndex returns the special feature of the cell; 0 means none.
func (c *Cell) SpecialIndex() int { return c.specialIndex }

// SetSpecialIndex places a special feature. Cells with a river cannot hold
// one. Placing a feature removes all roads of the cell.
func (c *Cell) SetSpecialIndex(v int) {
	if c.specialIndex != v && !c.HasRiver() {
		c.specialIndex = v
		c.RemoveRoads()
		c.refreshSelfOnly()
	}
}

// IsSpecial reports whether the cell holds a special feature.
func (c *Cell) IsSpecial() bool {
	return c.specialIndex > 0
}

// Walled reports whether the cell is enclosed by walls.
func (c *Cell) Walled() bool { return c.walled }

// SetWalled raises or removes walls.
func (c *Cell) SetWalled(v bool) {
	if c.walled != v {
		c.walled = v
		c.refresh()
	}
}

// ── Persisted state ─────────────────────────────────────────────────

// CellData is the persistent state of a cell.
type CellData struct {
	TerrainTypeIndex int       `json:"terrain"`
	Elevation        int       `json:"elevation"`
	WaterLevel       int       `json:"water_level"`
	UrbanLevel       int       `json:"urban_level"`
	FarmLevel        int       `json:"farm_level"`
	PlantLevel       int       `json:"plant_level"`
	SpecialIndex     int       `json:"special_index"`
	Walled           bool      `json:"walled"`
	HasIncomingRiver bool      `json:"has_incoming_river"`
	IncomingRiver    Direction `json:"incoming_river"`
	HasOutgoingRiver bool      `json:"has_outgoing_river"`
	OutgoingRiver    Direction `json:"outgoing_river"`
	Roads            [6]bool   `json:"roads"`
}

// Data returns a copy of the persistent state.
func (c *Cell) Data() CellData {
	return CellData{
		TerrainTypeIndex: c.terrainTypeIndex,
		Elevation:        c.elevation,
		WaterLevel:       c.waterLevel,
		UrbanLevel:       c.urbanLevel,
		FarmLevel:        c.farmLevel,
		PlantLevel:       c.plantLevel,
		SpecialIndex:     c.specialIndex,
		Walled:           c.walled,
		HasIncomingRiver: c.hasIncomingRiver,
		IncomingRiver:    c.incomingRiver,
		HasOutgoingRiver: c.hasOutgoingRiver,
		OutgoingRiver:    c.outgoingRiver,
		Roads:            c.roads,
	}
}

// Restore overwrites the persistent state without applying the editing
// rules. It is meant for loading saved maps, whose cells are restored one
// at a time while their neighbors are still stale.
func (c *Cell) Restore(d CellData) {
	c.terrainTypeIndex = d.TerrainTypeIndex
	c.elevation = d.Elevation
	c.waterLevel = d.WaterLevel
	c.urbanLevel = d.UrbanLevel
	c.farmLevel = d.FarmLevel
	c.plantLevel = d.PlantLevel
	c.specialIndex = d.SpecialIndex
	c.walled = d.Walled
	c.hasIncomingRiver = d.HasIncomingRiver
	c.incomingRiver = d.IncomingRiver
	c.hasOutgoingRiver = d.HasOutgoingRiver
	c.outgoingRiver = d.OutgoingRiver
	c.roads = d.Roads
	c.refreshSelfOnly()
}

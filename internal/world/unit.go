package world

// Unit is a mobile piece standing on exactly one cell.
type Unit struct {
	location    *Cell
	Orientation float64 // Degrees around the vertical axis

	// Travel animation state: the path being walked and the index of the
	// cell the unit is currently shown on.
	pathToTravel []*Cell
	travelStep   int
}

// Location returns the cell the unit occupies.
func (u *Unit) Location() *Cell {
	return u.location
}

// setLocation moves the unit, releasing its previous cell.
func (u *Unit) setLocation(c *Cell) {
	if u.location != nil {
		u.location.unit = nil
	}
	u.location = c
	c.unit = u
	c.refreshSelfOnly()
}

// IsValidDestination reports whether the unit may end a move on c.
func (u *Unit) IsValidDestination(c *Cell) bool {
	return c != nil && !c.IsUnderwater() && c.unit == nil
}

// Travel moves the unit to the last cell of path immediately and records
// the path so that Advance can step through it for display.
func (u *Unit) Travel(path []*Cell) {
	if len(path) == 0 {
		return
	}
	u.setLocation(path[len(path)-1])
	u.pathToTravel = path
	u.travelStep = 0
}

// Traveling reports whether the travel animation is still running.
func (u *Unit) Traveling() bool {
	return u.pathToTravel != nil
}

// DisplayCell returns the cell the unit is shown on during travel, or its
// location when idle.
func (u *Unit) DisplayCell() *Cell {
	if u.pathToTravel == nil {
		return u.location
	}
	return u.pathToTravel[u.travelStep]
}

// Advance moves the travel animation one cell forward. It returns false
// once the unit has arrived.
func (u *Unit) Advance() bool {
	if u.pathToTravel == nil {
		return false
	}
	u.travelStep++
	if u.travelStep >= len(u.pathToTravel)-1 {
		u.pathToTravel = nil
		u.travelStep = 0
		return false
	}
	return true
}

// Units returns the units on the grid. The slice is owned by the grid.
func (g *Grid) Units() []*Unit {
	return g.units
}

// AddUnit places a new unit on c. It returns nil when c is nil or already
// occupied.
func (g *Grid) AddUnit(c *Cell, orientation float64) *Unit {
	if c == nil || c.unit != nil {
		return nil
	}
	u := &Unit{Orientation: orientation}
	u.setLocation(c)
	g.units = append(g.units, u)
	return u
}

// RemoveUnit takes u off the grid.
func (g *Grid) RemoveUnit(u *Unit) {
	for i, other := range g.units {
		if other == u {
			g.units = append(g.units[:i], g.units[i+1:]...)
			break
		}
	}
	if u.location != nil {
		u.location.unit = nil
		u.location.refreshSelfOnly()
		u.location = nil
	}
}

// ClearUnits removes every unit from the grid.
func (g *Grid) ClearUnits() {
	for _, u := range g.units {
		if u.location != nil {
			u.location.unit = nil
			u.location = nil
		}
	}
	g.units = nil
}

// AdvanceUnits steps every traveling unit once and reports whether any
// unit is still moving.
func (g *Grid) AdvanceUnits() bool {
	moving := false
	for _, u := range g.units {
		if !u.Traveling() {
			continue
		}
		if u.Advance() {
			moving = true
		}
		u.DisplayCell().refreshSelfOnly()
	}
	return moving
}

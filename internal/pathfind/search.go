package pathfind

import "github.com/talgya/hexmap/internal/world"

// Movement costs.
const (
	RoadCost  = 1
	FlatCost  = 5
	SlopeCost = 10
)

// Searcher runs searches over one grid and remembers the last path found.
// It is not safe for concurrent use; edits and searches over the same grid
// must be serialized by the caller.
type Searcher struct {
	grid     *world.Grid
	frontier *Frontier

	from, to *world.Cell
	speed    int
	hasPath  bool
}

// New returns a Searcher for g.
func New(g *world.Grid) *Searcher {
	return &Searcher{grid: g, frontier: NewFrontier()}
}

// MoveCost returns the cost of stepping from current into its neighbor in
// direction d, and false when that step is not allowed. Occupancy and
// visitation are not considered.
func MoveCost(current *world.Cell, d world.Direction) (int, bool) {
	neighbor := current.Neighbor(d)
	if neighbor == nil || neighbor.IsUnderwater() {
		return 0, false
	}

	edge := current.EdgeTypeTo(neighbor)
	if edge == world.Cliff {
		return 0, false
	}

	if current.HasRoadThroughEdge(d) {
		return RoadCost, true
	}
	if current.Walled() != neighbor.Walled() {
		return 0, false
	}

	cost := FlatCost
	if edge == world.Slope {
		cost = SlopeCost
	}
	cost += neighbor.UrbanLevel() + neighbor.FarmLevel() + neighbor.PlantLevel()
	return cost, true
}

// Search computes distances from fromCell until toCell is settled, moving
// speed points per turn. Movement left over at the end of a turn is lost.
// It reports whether toCell is reachable; on success walking PathFrom back
// from toCell reaches fromCell. speed must be positive.
func (s *Searcher) Search(fromCell, toCell *world.Cell, speed int) bool {
	if speed <= 0 || fromCell == nil || toCell == nil {
		return false
	}

	phase := s.grid.NextSearchPhase()
	s.frontier.Clear()

	fromCell.Search.Phase = phase
	fromCell.Search.Distance = 0
	fromCell.Search.Heuristic = 0
	fromCell.Search.PathFrom = nil
	s.frontier.Enqueue(fromCell)

	for s.frontier.Len() > 0 {
		current := s.frontier.Dequeue()
		current.Search.Phase++

		if current == toCell {
			return true
		}

		currentTurn := (current.Search.Distance - 1) / speed

		for _, d := range world.Directions {
			neighbor := current.Neighbor(d)
			if neighbor == nil || neighbor.Search.Phase > phase || neighbor.Unit() != nil {
				continue
			}

			moveCost, ok := MoveCost(current, d)
			if !ok {
				continue
			}

			distance := current.Search.Distance + moveCost
			turn := (distance - 1) / speed
			if turn > currentTurn {
				distance = turn*speed + moveCost
			}

			if neighbor.Search.Phase < phase {
				neighbor.Search.Phase = phase
				neighbor.Search.Distance = distance
				neighbor.Search.PathFrom = current
				neighbor.Search.Heuristic = neighbor.Coordinates.DistanceTo(toCell.Coordinates)
				s.frontier.Enqueue(neighbor)
			} else if distance < neighbor.Search.Distance {
				oldPriority := neighbor.Search.Priority()
				neighbor.Search.Distance = distance
				neighbor.Search.PathFrom = current
				s.frontier.ChangePriority(neighbor, oldPriority)
			}
		}
	}

	return false
}

// FindPath searches from fromCell to toCell and remembers the result. It
// returns the cells from fromCell to toCell inclusive, or false when
// toCell cannot be reached.
func (s *Searcher) FindPath(fromCell, toCell *world.Cell, speed int) ([]*world.Cell, bool) {
	s.ClearPath()
	s.from = fromCell
	s.to = toCell
	s.speed = speed
	s.hasPath = s.Search(fromCell, toCell, speed)
	if !s.hasPath {
		return nil, false
	}
	return s.Path(), true
}

// HasPath reports whether the last FindPath succeeded.
func (s *Searcher) HasPath() bool {
	return s.hasPath
}

// Endpoints returns the cells of the last FindPath call.
func (s *Searcher) Endpoints() (from, to *world.Cell) {
	return s.from, s.to
}

// Path returns the cells of the last path found, from start to end, or nil.
func (s *Searcher) Path() []*world.Cell {
	if !s.hasPath {
		return nil
	}
	var path []*world.Cell
	for c := s.to; c != s.from; c = c.Search.PathFrom {
		path = append(path, c)
	}
	path = append(path, s.from)

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Turn returns the turn on which a unit following the last path reaches c.
func (s *Searcher) Turn(c *world.Cell) int {
	if s.speed <= 0 {
		return 0
	}
	return (c.Search.Distance - 1) / s.speed
}

// ClearPath forgets the last path.
func (s *Searcher) ClearPath() {
	s.from, s.to = nil, nil
	s.speed = 0
	s.hasPath = false
}

// Package pathfind implements shortest-path search over a world.Grid with
// a turn-based movement budget.
package pathfind

import (
	"math"

	"github.com/talgya/hexmap/internal/world"
)

// Frontier is a bucket queue of cells keyed by their search priority.
// Priorities are small non-negative integers, so each bucket is an
// intrusive list threaded through the cells' NextWithSamePriority links.
// Cells with equal priority come out in reverse insertion order.
type Frontier struct {
	buckets []*world.Cell
	minimum int
	count   int
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{minimum: math.MaxInt}
}

// Len returns the number of queued cells.
func (f *Frontier) Len() int {
	return f.count
}

// Enqueue adds c at its current search priority.
func (f *Frontier) Enqueue(c *world.Cell) {
	f.count++
	priority := c.Search.Priority()
	if priority < f.minimum {
		f.minimum = priority
	}
	for priority >= len(f.buckets) {
		f.buckets = append(f.buckets, nil)
	}
	c.Search.NextWithSamePriority = f.buckets[priority]
	f.buckets[priority] = c
}

// Dequeue removes and returns a cell with the lowest priority, or nil when
// the frontier is empty.
func (f *Frontier) Dequeue() *world.Cell {
	if f.count == 0 {
		return nil
	}
	for ; f.minimum < len(f.buckets); f.minimum++ {
		c := f.buckets[f.minimum]
		if c == nil {
			continue
		}
		f.buckets[f.minimum] = c.Search.NextWithSamePriority
		c.Search.NextWithSamePriority = nil
		f.count--
		return c
	}
	return nil
}

// ChangePriority moves c, queued under oldPriority, to the bucket of its
// current priority.
func (f *Frontier) ChangePriority(c *world.Cell, oldPriority int) {
	current := f.buckets[oldPriority]
	next := current.Search.NextWithSamePriority

	if current == c {
		f.buckets[oldPriority] = next
	} else {
		for next != c {
			current = next
			next = current.Search.NextWithSamePriority
		}
		current.Search.NextWithSamePriority = c.Search.NextWithSamePriority
	}

	f.count--
	f.Enqueue(c)
}

// Clear empties the frontier so it can be reused for a new search.
func (f *Frontier) Clear() {
	f.count = 0
	f.buckets = f.buckets[:0]
	f.minimum = math.MaxInt
}

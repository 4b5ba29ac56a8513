package pathfind

import (
	"testing"

	"github.com/talgya/hexmap/internal/world"
)

// cellsWithPriorities returns cells from a scratch grid whose search
// priorities are set to the given values.
func cellsWithPriorities(t *testing.T, priorities ...int) []*world.Cell {
	t.Helper()
	g, err := world.NewGrid(10, 10)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	cells := g.Cells()[:len(priorities)]
	for i, p := range priorities {
		cells[i].Search.Distance = p
		cells[i].Search.Heuristic = 0
	}
	return cells
}

func TestFrontierOrdering(t *testing.T) {
	cells := cellsWithPriorities(t, 7, 3, 9, 0, 3, 12, 5)
	f := NewFrontier()
	for _, c := range cells {
		f.Enqueue(c)
	}
	if f.Len() != len(cells) {
		t.Fatalf("Len = %d, want %d", f.Len(), len(cells))
	}

	last := -1
	for i := 0; i < len(cells); i++ {
		c := f.Dequeue()
		if c == nil {
			t.Fatalf("Dequeue returned nil after %d cells", i)
		}
		if p := c.Search.Priority(); p < last {
			t.Fatalf("priority %d dequeued after %d", p, last)
		} else {
			last = p
		}
	}
	if f.Len() != 0 || f.Dequeue() != nil {
		t.Fatalf("frontier should be empty")
	}
}

func TestFrontierTiesAreLIFO(t *testing.T) {
	cells := cellsWithPriorities(t, 4, 4, 4)
	f := NewFrontier()
	for _, c := range cells {
		f.Enqueue(c)
	}
	for i := len(cells) - 1; i >= 0; i-- {
		if got := f.Dequeue(); got != cells[i] {
			t.Fatalf("dequeued cell %d, want %d", got.Index, cells[i].Index)
		}
	}
}

func TestFrontierEnqueueBelowMinimum(t *testing.T) {
	cells := cellsWithPriorities(t, 6, 2, 4)
	f := NewFrontier()
	f.Enqueue(cells[0])
	if got := f.Dequeue(); got != cells[0] {
		t.Fatalf("expected first cell")
	}
	// The minimum watermark advanced to 6; lower priorities must still win.
	f.Enqueue(cells[2])
	f.Enqueue(cells[1])
	if got := f.Dequeue(); got != cells[1] {
		t.Fatalf("priority 2 should come out first, got %d", got.Search.Priority())
	}
	if got := f.Dequeue(); got != cells[2] {
		t.Fatalf("priority 4 should come out second")
	}
}

func TestFrontierChangePriority(t *testing.T) {
	cells := cellsWithPriorities(t, 8, 8, 8, 5)
	f := NewFrontier()
	for _, c := range cells {
		f.Enqueue(c)
	}

	// Move the middle cell of the priority-8 bucket ahead of everything.
	mid := cells[1]
	old := mid.Search.Priority()
	mid.Search.Distance = 2
	f.ChangePriority(mid, old)

	if f.Len() != len(cells) {
		t.Fatalf("Len = %d after ChangePriority, want %d", f.Len(), len(cells))
	}

	want := []*world.Cell{mid, cells[3], cells[2], cells[0]}
	for i, w := range want {
		if got := f.Dequeue(); got != w {
			t.Fatalf("dequeue %d: got cell %d, want %d", i, got.Index, w.Index)
		}
	}
}

func TestFrontierChangePriorityHead(t *testing.T) {
	cells := cellsWithPriorities(t, 8, 8)
	f := NewFrontier()
	f.Enqueue(cells[0])
	f.Enqueue(cells[1]) // head of the bucket

	cells[1].Search.Distance = 1
	f.ChangePriority(cells[1], 8)

	if got := f.Dequeue(); got != cells[1] {
		t.Fatalf("changed head should come out first")
	}
	if got := f.Dequeue(); got != cells[0] {
		t.Fatalf("remaining cell lost")
	}
}

func TestFrontierClear(t *testing.T) {
	cells := cellsWithPriorities(t, 3, 1)
	f := NewFrontier()
	f.Enqueue(cells[0])
	f.Enqueue(cells[1])

	f.Clear()

	if f.Len() != 0 || f.Dequeue() != nil {
		t.Fatalf("frontier not empty after Clear")
	}
	f.Enqueue(cells[0])
	if got := f.Dequeue(); got != cells[0] {
		t.Fatalf("frontier unusable after Clear")
	}
}

// Package engine provides the tick loop that animates unit travel and
// autosaves the map.
package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Animator advances travel animation by one step and reports whether
// anything is still moving.
type Animator interface {
	Tick() bool
}

// Engine drives the map forward.
type Engine struct {
	Interval time.Duration // Tick interval (default 200ms)

	// AutosaveEvery is the number of ticks between OnAutosave calls; 0
	// disables autosave.
	AutosaveEvery uint64

	// Callbacks, populated during setup.
	OnTick     func(tick uint64, moving bool) // Every tick, after animation
	OnAutosave func(tick uint64)              // Every AutosaveEvery ticks

	animator Animator
	tick     atomic.Uint64 // Monotonic, never resets
	running  atomic.Bool
	stop     chan struct{}
}

// NewEngine creates an engine animating a.
func NewEngine(a Animator) *Engine {
	return &Engine{
		Interval: 200 * time.Millisecond,
		animator: a,
		stop:     make(chan struct{}),
	}
}

// CurrentTick returns the tick counter.
func (e *Engine) CurrentTick() uint64 {
	return e.tick.Load()
}

// Resume sets the tick counter before Run, continuing from a saved tick.
func (e *Engine) Resume(tick uint64) {
	e.tick.Store(tick)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the tick loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer e.running.Store(false)

	slog.Info("engine started", "tick", e.CurrentTick(), "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			slog.Info("engine stopped", "tick", e.CurrentTick())
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop halts the tick loop. It is safe to call more than once.
func (e *Engine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// Step advances the engine by one tick.
func (e *Engine) Step() {
	tick := e.tick.Add(1)

	moving := false
	if e.animator != nil {
		moving = e.animator.Tick()
	}
	if e.OnTick != nil {
		e.OnTick(tick, moving)
	}

	if e.AutosaveEvery > 0 && tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(tick)
	}
}

// Uptime returns a human-readable duration for a tick count.
func Uptime(tick uint64, interval time.Duration) string {
	d := time.Duration(tick) * interval
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

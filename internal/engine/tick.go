// Package engine provides the tick loop and the per-phase simulation
// systems it drives.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine drives the simulation forward on three cadences: a fast layer
// every tick, a slow layer for the economy and construction, and a very
// slow layer for hierarchy decisions, wages, and reports.
type Engine struct {
	Tick     uint64        // monotonic, never resets; touched only by the run loop
	Interval time.Duration // base tick interval

	SlowEvery     uint64
	VerySlowEvery uint64

	// Callbacks for each cadence — populated during setup.
	OnFast     func(tick uint64)
	OnSlow     func(tick uint64)
	OnVerySlow func(tick uint64)

	// mu guards speed and running: the admin API and the signal handler
	// write them while the run loop reads.
	mu      sync.Mutex
	speed   float64
	running bool
}

// NewEngine creates an engine with the given cadences, paced at one tick
// per interval.
func NewEngine(slowEvery, verySlowEvery uint64, interval time.Duration) *Engine {
	return &Engine{
		Interval:      interval,
		SlowEvery:     slowEvery,
		VerySlowEvery: verySlowEvery,
		speed:         1.0,
	}
}

// Speed returns the pacing multiplier: 1.0 = real-time, 0 = paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed re-paces the loop. Zero pauses it.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = v
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("engine started", "tick", e.Tick, "speed", e.Speed())

	for e.Running() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("engine stopped", "tick", e.Tick)
}

// Step advances exactly one tick. Exposed so tests and the admin API can
// drive the loop directly.
func (e *Engine) Step() {
	e.Tick++

	if e.OnFast != nil {
		e.OnFast(e.Tick)
	}
	if e.Tick%e.SlowEvery == 0 && e.OnSlow != nil {
		e.OnSlow(e.Tick)
	}
	if e.Tick%e.VerySlowEvery == 0 && e.OnVerySlow != nil {
		e.OnVerySlow(e.Tick)
	}
}

// SimTime renders a tick count as a day/hour clock for reports. One tick
// is a sim-minute.
func SimTime(tick uint64) string {
	minutes := tick % 60
	totalHours := tick / 60
	hours := totalHours % 24
	days := totalHours/24 + 1
	return fmt.Sprintf("Day %d, %d:%02d", days, hours, minutes)
}

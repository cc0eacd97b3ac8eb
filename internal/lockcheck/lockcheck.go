// Package lockcheck audits lock acquisition across the world containers.
//
// Every container routes its lock and unlock calls through an optional
// Auditor. Production runs with a nil auditor (zero cost beyond a nil
// check); tests install a Recorder and assert that no goroutine ever holds
// two container locks at once and that acquisition sequences follow the
// global rank order.
package lockcheck

import (
	"fmt"
	"sync"
)

// Rank is the global lock ordering for the world containers. Any code path
// that touches more than one container must acquire (and release) locks in
// ascending rank, never holding one while taking another.
type Rank int

const (
	RankAgents Rank = iota + 1
	RankMarkets
	RankBuildings
	RankKingdoms
	RankCurrency
	RankNodes
	RankMeta // simulation events, stats, and tick counter
)

func (r Rank) String() string {
	switch r {
	case RankAgents:
		return "agents"
	case RankMarkets:
		return "markets"
	case RankBuildings:
		return "buildings"
	case RankKingdoms:
		return "kingdoms"
	case RankCurrency:
		return "currency"
	case RankNodes:
		return "nodes"
	case RankMeta:
		return "meta"
	}
	return fmt.Sprintf("rank(%d)", int(r))
}

// Auditor observes container lock traffic.
type Auditor interface {
	Acquired(r Rank, write bool)
	Released(r Rank, write bool)
}

// Recorder is an Auditor that tracks held locks per call site and records
// violations of the no-nesting rule. It assumes a single simulation
// goroutine plus read-only snapshot readers, so held-lock depth is tracked
// globally per mode.
type Recorder struct {
	mu sync.Mutex

	writeHeld  []Rank
	Violations []string
	MaxDepth   int
	Acquires   int
}

// Acquired records a lock grab. Nested write acquisitions are violations;
// concurrent read locks from independent readers are fine and not tracked.
func (rec *Recorder) Acquired(r Rank, write bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.Acquires++
	if !write {
		return
	}
	for _, held := range rec.writeHeld {
		rec.Violations = append(rec.Violations,
			fmt.Sprintf("acquired %s write lock while holding %s", r, held))
	}
	rec.writeHeld = append(rec.writeHeld, r)
	if len(rec.writeHeld) > rec.MaxDepth {
		rec.MaxDepth = len(rec.writeHeld)
	}
}

// Released records a lock release.
func (rec *Recorder) Released(r Rank, write bool) {
	if !write {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	for i := len(rec.writeHeld) - 1; i >= 0; i-- {
		if rec.writeHeld[i] == r {
			rec.writeHeld = append(rec.writeHeld[:i], rec.writeHeld[i+1:]...)
			return
		}
	}
	rec.Violations = append(rec.Violations,
		fmt.Sprintf("released %s write lock that was not held", r))
}

// Guarded wraps a sync.RWMutex with audit hooks. Containers embed one and
// assign the shared auditor during test setup.
type Guarded struct {
	mu      sync.RWMutex
	rank    Rank
	auditor Auditor
}

// NewGuarded returns a Guarded mutex for the given rank.
func NewGuarded(rank Rank) Guarded {
	return Guarded{rank: rank}
}

// SetAuditor installs an auditor. Call before any concurrent use.
func (g *Guarded) SetAuditor(a Auditor) { g.auditor = a }

func (g *Guarded) Lock() {
	g.mu.Lock()
	if g.auditor != nil {
		g.auditor.Acquired(g.rank, true)
	}
}

func (g *Guarded) Unlock() {
	if g.auditor != nil {
		g.auditor.Released(g.rank, true)
	}
	g.mu.Unlock()
}

func (g *Guarded) RLock() {
	g.mu.RLock()
	if g.auditor != nil {
		g.auditor.Acquired(g.rank, false)
	}
}

func (g *Guarded) RUnlock() {
	if g.auditor != nil {
		g.auditor.Released(g.rank, false)
	}
	g.mu.RUnlock()
}

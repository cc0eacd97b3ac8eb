package world

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/lockcheck"
)

// BuildingStore holds all buildings behind a read/write lock. Mutations go
// through store methods that take the write lock for the duration of one
// operation and never call into another container.
type BuildingStore struct {
	lock      lockcheck.Guarded
	buildings map[uuid.UUID]*Building
}

// NewBuildingStore creates an empty store.
func NewBuildingStore() *BuildingStore {
	return &BuildingStore{
		lock:      lockcheck.NewGuarded(lockcheck.RankBuildings),
		buildings: make(map[uuid.UUID]*Building),
	}
}

// SetAuditor installs a lock auditor for tests.
func (s *BuildingStore) SetAuditor(a lockcheck.Auditor) { s.lock.SetAuditor(a) }

// Add inserts a building.
func (s *BuildingStore) Add(b *Building) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.buildings[b.ID] = b
}

// Get returns a deep copy of the building, or false if unknown.
func (s *BuildingStore) Get(id uuid.UUID) (Building, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	b, ok := s.buildings[id]
	if !ok {
		return Building{}, false
	}
	return copyBuilding(b), true
}

// Snapshot returns deep copies of every building.
func (s *BuildingStore) Snapshot() []Building {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]Building, 0, len(s.buildings))
	for _, b := range s.buildings {
		out = append(out, copyBuilding(b))
	}
	return out
}

// Incomplete returns deep copies of buildings still under construction.
func (s *BuildingStore) Incomplete() []Building {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var out []Building
	for _, b := range s.buildings {
		if !b.Complete() && !b.Destroyed() {
			out = append(out, copyBuilding(b))
		}
	}
	return out
}

// Deliver transfers a bundle into the building's ledger, capped per kind at
// the requirement. Returns the rejected excess and true if the building
// exists and is still under construction.
func (s *BuildingStore) Deliver(id uuid.UUID, bundle map[ResourceKind]int) (map[ResourceKind]int, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, ok := s.buildings[id]
	if !ok || b.Complete() {
		return nil, false
	}
	return b.deliver(bundle), true
}

// Advance applies a construction increment and returns the progress gained
// (zero on stall) plus whether the building just completed.
func (s *BuildingStore) Advance(id uuid.UUID, increment float64) (gained float64, completed bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, ok := s.buildings[id]
	if !ok {
		return 0, false
	}
	before := b.Complete()
	gained = b.advance(increment)
	return gained, !before && b.Complete()
}

// Damage applies structural damage.
func (s *BuildingStore) Damage(id uuid.UUID, amount float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if b, ok := s.buildings[id]; ok {
		b.Damage(amount)
	}
}

// SweepDestroyed removes buildings with zero health and returns their ids.
func (s *BuildingStore) SweepDestroyed() []uuid.UUID {
	s.lock.Lock()
	defer s.lock.Unlock()
	var gone []uuid.UUID
	for id, b := range s.buildings {
		if b.Destroyed() {
			delete(s.buildings, id)
			gone = append(gone, id)
		}
	}
	return gone
}

// OwnedBy returns deep copies of buildings owned by the given agent within
// radius of pos, optionally filtered to one type (pass nil for any).
func (s *BuildingStore) OwnedBy(agentID uuid.UUID, pos Position, radius float64, t *BuildingType) []Building {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var out []Building
	for _, b := range s.buildings {
		if b.Owner.Kind != OwnerAgent || b.Owner.ID != agentID {
			continue
		}
		if t != nil && b.Type != *t {
			continue
		}
		if b.Position.DistanceTo(pos) <= radius {
			out = append(out, copyBuilding(b))
		}
	}
	return out
}

func copyBuilding(b *Building) Building {
	dup := *b
	dup.Required = make(map[ResourceKind]int, len(b.Required))
	for k, v := range b.Required {
		dup.Required[k] = v
	}
	dup.Delivered = make(map[ResourceKind]int, len(b.Delivered))
	for k, v := range b.Delivered {
		dup.Delivered[k] = v
	}
	return dup
}

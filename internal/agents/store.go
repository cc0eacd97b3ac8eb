package agents

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/lockcheck"
	"github.com/talgya/crownworks/internal/world"
)

// Store holds every agent behind a read/write lock. The simulation thread
// is the single writer; the snapshot API takes the read side. Mutation
// callbacks run under the write lock and must not call into any other
// container.
type Store struct {
	lock   lockcheck.Guarded
	agents map[uuid.UUID]*Agent
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		lock:   lockcheck.NewGuarded(lockcheck.RankAgents),
		agents: make(map[uuid.UUID]*Agent),
	}
}

// SetAuditor installs a lock auditor for tests.
func (s *Store) SetAuditor(a lockcheck.Auditor) { s.lock.SetAuditor(a) }

// Add inserts an agent.
func (s *Store) Add(a *Agent) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.agents[a.ID] = a
}

// Get returns a deep copy, or false if unknown.
func (s *Store) Get(id uuid.UUID) (Agent, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, false
	}
	return copyAgent(a), true
}

// Living returns deep copies of every living agent, in stable byte order
// by id so per-agent passes walk the population in the same sequence
// every cycle.
func (s *Store) Living() []Agent {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Alive {
			out = append(out, copyAgent(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

// CountLiving returns the living population.
func (s *Store) CountLiving() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	n := 0
	for _, a := range s.agents {
		if a.Alive {
			n++
		}
	}
	return n
}

// Mutate runs fn on the agent under the write lock. No-op if the agent is
// unknown. fn must not touch other containers.
func (s *Store) Mutate(id uuid.UUID, fn func(*Agent)) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return false
	}
	fn(a)
	return true
}

// MutateLiving runs fn over every living agent under one write lock hold.
// fn must not touch other containers.
func (s *Store) MutateLiving(fn func(*Agent)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, a := range s.agents {
		if a.Alive {
			fn(a)
		}
	}
}

// ApplyTrade settles one matched pair atomically: debit buyer, credit
// seller, move goods. Fails without side effects if the buyer cannot pay,
// the seller no longer holds the goods, or the buyer lacks carry capacity.
func (s *Store) ApplyTrade(buyerID, sellerID uuid.UUID, kind world.ResourceKind, qty int, price float64) bool {
	if qty <= 0 {
		return false
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	buyer, ok := s.agents[buyerID]
	if !ok || !buyer.Alive {
		return false
	}
	seller, ok := s.agents[sellerID]
	if !ok || !seller.Alive {
		return false
	}

	cost := price * float64(qty)
	if buyer.Wallet < cost {
		return false
	}
	if seller.Inventory[kind] < qty {
		return false
	}
	if buyer.FreeCapacity() < qty {
		return false
	}

	buyer.Wallet -= cost
	seller.Wallet += cost
	seller.Inventory[kind] -= qty
	if buyer.Inventory == nil {
		buyer.Inventory = make(map[world.ResourceKind]int)
	}
	buyer.Inventory[kind] += qty
	return true
}

// AddInventory grants up to qty units bounded by free capacity and returns
// the amount actually stored.
func (s *Store) AddInventory(id uuid.UUID, kind world.ResourceKind, qty int) int {
	if qty <= 0 {
		return 0
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.agents[id]
	if !ok || !a.Alive {
		return 0
	}
	if free := a.FreeCapacity(); qty > free {
		qty = free
	}
	if qty <= 0 {
		return 0
	}
	if a.Inventory == nil {
		a.Inventory = make(map[world.ResourceKind]int)
	}
	a.Inventory[kind] += qty
	return qty
}

// RemoveDead deletes dead agents and returns how many were removed. The
// lifecycle pass owns agent existence; nothing else deletes.
func (s *Store) RemoveDead() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for id, a := range s.agents {
		if !a.Alive {
			delete(s.agents, id)
			n++
		}
	}
	return n
}

// TotalWealth sums living wallets, used by conservation accounting and the
// periodic report.
func (s *Store) TotalWealth() float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	total := 0.0
	for _, a := range s.agents {
		if a.Alive {
			total += a.Wallet
		}
	}
	return total
}

func copyAgent(a *Agent) Agent {
	dup := *a
	dup.Inventory = make(map[world.ResourceKind]int, len(a.Inventory))
	for k, v := range a.Inventory {
		dup.Inventory[k] = v
	}
	dup.Needs = make(map[world.ResourceKind]int, len(a.Needs))
	for k, v := range a.Needs {
		dup.Needs[k] = v
	}
	if a.State.Destination != nil {
		dest := *a.State.Destination
		dup.State.Destination = &dest
	}
	if a.Carrying != nil {
		payload := CarryPayload{
			TargetBuilding: a.Carrying.TargetBuilding,
			Bundle:         make(map[world.ResourceKind]int, len(a.Carrying.Bundle)),
		}
		for k, v := range a.Carrying.Bundle {
			payload.Bundle[k] = v
		}
		dup.Carrying = &payload
	}
	return dup
}

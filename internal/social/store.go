package social

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/lockcheck"
	"github.com/talgya/crownworks/internal/world"
)

// KingdomStore holds every kingdom and every noble order behind a single
// read/write lock. Orders live here rather than on the kingdom so a noble
// without a formal kingdom assignment can still commission work.
type KingdomStore struct {
	lock     lockcheck.Guarded
	kingdoms map[uuid.UUID]*Kingdom
	byKing   map[uuid.UUID]uuid.UUID
	orders   map[uuid.UUID]*NobleOrder
}

// NewKingdomStore creates an empty store.
func NewKingdomStore() *KingdomStore {
	return &KingdomStore{
		lock:     lockcheck.NewGuarded(lockcheck.RankKingdoms),
		kingdoms: make(map[uuid.UUID]*Kingdom),
		byKing:   make(map[uuid.UUID]uuid.UUID),
		orders:   make(map[uuid.UUID]*NobleOrder),
	}
}

// SetAuditor installs a lock auditor for tests.
func (s *KingdomStore) SetAuditor(a lockcheck.Auditor) { s.lock.SetAuditor(a) }

// EnsureKingdom returns the kingdom ruled by kingID, founding one centered
// on the sovereign's position if none exists yet. A sovereign without a
// realm acquires one lazily on their first strategic decision.
func (s *KingdomStore) EnsureKingdom(kingID uuid.UUID, center world.Position) Kingdom {
	s.lock.Lock()
	defer s.lock.Unlock()
	if kid, ok := s.byKing[kingID]; ok {
		return copyKingdom(s.kingdoms[kid])
	}
	k := NewKingdom(kingID, center)
	s.kingdoms[k.ID] = k
	s.byKing[kingID] = k.ID
	return copyKingdom(k)
}

// AttachNoble records a noble as belonging to the kingdom.
func (s *KingdomStore) AttachNoble(kingdomID, nobleID uuid.UUID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	k, ok := s.kingdoms[kingdomID]
	if !ok {
		return
	}
	for _, id := range k.NobleIDs {
		if id == nobleID {
			return
		}
	}
	k.NobleIDs = append(k.NobleIDs, nobleID)
}

// SetGoal replaces the kingdom's strategic goal. Returns true when the
// goal actually changed.
func (s *KingdomStore) SetGoal(kingdomID uuid.UUID, goal Goal, priority float64, tick uint64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	k, ok := s.kingdoms[kingdomID]
	if !ok {
		return false
	}
	changed := k.CurrentGoal != goal
	k.CurrentGoal = goal
	k.GoalPriority = priority
	if changed {
		k.GoalSetTick = tick
	}
	return changed
}

// Kingdoms returns deep copies of every kingdom.
func (s *KingdomStore) Kingdoms() []Kingdom {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]Kingdom, 0, len(s.kingdoms))
	for _, k := range s.kingdoms {
		out = append(out, copyKingdom(k))
	}
	return out
}

// KingdomOf returns a deep copy of the kingdom the agent rules or serves
// as noble, or false if they hold no seat.
func (s *KingdomStore) KingdomOf(agentID uuid.UUID) (Kingdom, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if kid, ok := s.byKing[agentID]; ok {
		return copyKingdom(s.kingdoms[kid]), true
	}
	for _, k := range s.kingdoms {
		for _, id := range k.NobleIDs {
			if id == agentID {
				return copyKingdom(k), true
			}
		}
	}
	return Kingdom{}, false
}

// AddOrder stores a new order.
func (s *KingdomStore) AddOrder(o *NobleOrder) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.orders[o.ID] = o
}

// Orders returns deep copies of every order, in no particular order.
func (s *KingdomStore) Orders() []NobleOrder {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]NobleOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	return out
}

// PendingOrders returns deep copies of orders still awaiting a work site.
func (s *KingdomStore) PendingOrders() []NobleOrder {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]NobleOrder, 0)
	for _, o := range s.orders {
		if o.Status == OrderPending {
			out = append(out, copyOrder(o))
		}
	}
	return out
}

// OpenOrderCount counts orders a noble currently has pending or in
// progress. Used to bound origination.
func (s *KingdomStore) OpenOrderCount(nobleID uuid.UUID) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	n := 0
	for _, o := range s.orders {
		if o.NobleID == nobleID && (o.Status == OrderPending || o.Status == OrderInProgress) {
			n++
		}
	}
	return n
}

// StartOrder transitions a pending order to in progress, binding it to the
// construction site and its crew. No-op for any other status.
func (s *KingdomStore) StartOrder(orderID, buildingID uuid.UUID, builders []uuid.UUID) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != OrderPending {
		return false
	}
	o.Status = OrderInProgress
	o.BuildingID = buildingID
	o.AssignedBuilders = append([]uuid.UUID(nil), builders...)
	return true
}

// CompleteForBuilding marks every in-progress order bound to the building
// as completed and returns how many flipped. Called when a site reaches
// full progress; terminal, no further transitions.
func (s *KingdomStore) CompleteForBuilding(buildingID uuid.UUID) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.Status == OrderInProgress && o.BuildingID == buildingID {
			o.Status = OrderCompleted
			n++
		}
	}
	return n
}

// CancelForBuilding cancels in-progress orders whose site was destroyed.
func (s *KingdomStore) CancelForBuilding(buildingID uuid.UUID) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.Status == OrderInProgress && o.BuildingID == buildingID {
			o.Status = OrderCancelled
			n++
		}
	}
	return n
}

// CancelOrdersBy cancels every open order from a noble, typically on death.
func (s *KingdomStore) CancelOrdersBy(nobleID uuid.UUID) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.NobleID == nobleID && (o.Status == OrderPending || o.Status == OrderInProgress) {
			o.Status = OrderCancelled
			n++
		}
	}
	return n
}

func copyKingdom(k *Kingdom) Kingdom {
	dup := *k
	dup.NobleIDs = append([]uuid.UUID(nil), k.NobleIDs...)
	return dup
}

func copyOrder(o *NobleOrder) NobleOrder {
	dup := *o
	dup.AssignedBuilders = append([]uuid.UUID(nil), o.AssignedBuilders...)
	return dup
}

package world

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/lockcheck"
)

// ResourceKind enumerates tradeable and deliverable material kinds.
type ResourceKind uint8

const (
	Wood ResourceKind = iota
	Stone
	Iron
	Food
)

// NumResources is the number of resource kinds.
const NumResources = 4

// AllResources lists every kind in declaration order.
var AllResources = [NumResources]ResourceKind{Wood, Stone, Iron, Food}

func (r ResourceKind) String() string {
	switch r {
	case Wood:
		return "wood"
	case Stone:
		return "stone"
	case Iron:
		return "iron"
	case Food:
		return "food"
	}
	return "unknown"
}

// ResourceKindFromString is the inverse of String. Unknown names map to
// Wood; callers validating input should check first.
func ResourceKindFromString(s string) (ResourceKind, bool) {
	switch s {
	case "wood":
		return Wood, true
	case "stone":
		return Stone, true
	case "iron":
		return Iron, true
	case "food":
		return Food, true
	}
	return Wood, false
}

// NodeKind is the kind of a harvestable node.
type NodeKind uint8

const (
	NodeTree NodeKind = iota
	NodeRock
	NodeIronDeposit
	NodeFarm
)

func (k NodeKind) String() string {
	switch k {
	case NodeTree:
		return "tree"
	case NodeRock:
		return "rock"
	case NodeIronDeposit:
		return "iron"
	case NodeFarm:
		return "farm"
	}
	return "unknown"
}

// Yields maps the node kind to the resource it produces.
func (k NodeKind) Yields() ResourceKind {
	switch k {
	case NodeTree:
		return Wood
	case NodeRock:
		return Stone
	case NodeIronDeposit:
		return Iron
	case NodeFarm:
		return Food
	}
	return Wood
}

// ResourceNode is a depletable stock of raw material in the world.
type ResourceNode struct {
	ID       uuid.UUID `json:"id"`
	Kind     NodeKind  `json:"kind"`
	Position Position  `json:"position"`
	Quantity int       `json:"quantity"`
}

// NodeStore holds all resource nodes behind a read/write lock. The
// simulation thread is the only writer; snapshot readers take the read
// side.
type NodeStore struct {
	lock  lockcheck.Guarded
	nodes map[uuid.UUID]*ResourceNode
}

// NewNodeStore creates an empty store.
func NewNodeStore() *NodeStore {
	return &NodeStore{
		lock:  lockcheck.NewGuarded(lockcheck.RankNodes),
		nodes: make(map[uuid.UUID]*ResourceNode),
	}
}

// SetAuditor installs a lock auditor for tests.
func (s *NodeStore) SetAuditor(a lockcheck.Auditor) { s.lock.SetAuditor(a) }

// Add inserts a node.
func (s *NodeStore) Add(n *ResourceNode) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nodes[n.ID] = n
}

// Snapshot returns copies of every node.
func (s *NodeStore) Snapshot() []ResourceNode {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]ResourceNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	return out
}

// Harvest removes up to want units from the node and returns the amount
// actually taken. Zero means the node is depleted or unknown.
func (s *NodeStore) Harvest(id uuid.UUID, want int) int {
	if want <= 0 {
		return 0
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	n, ok := s.nodes[id]
	if !ok || n.Quantity <= 0 {
		return 0
	}
	taken := want
	if taken > n.Quantity {
		taken = n.Quantity
	}
	n.Quantity -= taken
	return taken
}

// TotalByKind sums remaining stock per resource kind, the scarcity
// observable the hierarchy reads.
func (s *NodeStore) TotalByKind() map[ResourceKind]int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	totals := make(map[ResourceKind]int, NumResources)
	for _, n := range s.nodes {
		totals[n.Kind.Yields()] += n.Quantity
	}
	return totals
}

// NearestNode returns a copy of the closest node of the given kind with
// stock remaining, or false if none exists.
func (s *NodeStore) NearestNode(pos Position, kind NodeKind) (ResourceNode, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var best *ResourceNode
	bestDist := 0.0
	for _, n := range s.nodes {
		if n.Kind != kind || n.Quantity <= 0 {
			continue
		}
		d := n.Position.DistanceTo(pos)
		if best == nil || d < bestDist {
			best = n
			bestDist = d
		}
	}
	if best == nil {
		return ResourceNode{}, false
	}
	return *best, true
}

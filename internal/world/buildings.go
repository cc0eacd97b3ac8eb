package world

import (
	"math"

	"github.com/google/uuid"
)

// BuildingType enumerates constructible structures.
type BuildingType uint8

const (
	Warehouse BuildingType = iota
	MarketHall
	Barracks
	Workshop
	Farm
	Mine
	NobleEstate
	Church
	Tavern
	Walls
	PeasantHouse
	FarmingShed
)

func (t BuildingType) String() string {
	switch t {
	case Warehouse:
		return "warehouse"
	case MarketHall:
		return "market"
	case Barracks:
		return "barracks"
	case Workshop:
		return "workshop"
	case Farm:
		return "farm"
	case Mine:
		return "mine"
	case NobleEstate:
		return "noble_estate"
	case Church:
		return "church"
	case Tavern:
		return "tavern"
	case Walls:
		return "walls"
	case PeasantHouse:
		return "peasant_house"
	case FarmingShed:
		return "farming_shed"
	}
	return "unknown"
}

// RequiredResources returns the construction bill of materials for the
// type. The map is freshly allocated; callers may keep it.
func (t BuildingType) RequiredResources() map[ResourceKind]int {
	switch t {
	case Warehouse:
		return map[ResourceKind]int{Wood: 100, Stone: 50, Iron: 20}
	case MarketHall:
		return map[ResourceKind]int{Wood: 90, Stone: 70, Iron: 15}
	case Barracks:
		return map[ResourceKind]int{Wood: 80, Stone: 60, Iron: 30}
	case Workshop:
		return map[ResourceKind]int{Wood: 60, Stone: 40, Iron: 15}
	case Farm:
		return map[ResourceKind]int{Wood: 40, Stone: 20, Iron: 5}
	case Mine:
		return map[ResourceKind]int{Wood: 30, Stone: 50, Iron: 25}
	case NobleEstate:
		return map[ResourceKind]int{Wood: 150, Stone: 100, Iron: 40}
	case Church:
		return map[ResourceKind]int{Wood: 70, Stone: 80, Iron: 10}
	case Tavern:
		return map[ResourceKind]int{Wood: 50, Stone: 30, Iron: 5}
	case Walls:
		return map[ResourceKind]int{Wood: 20, Stone: 200, Iron: 50}
	case PeasantHouse:
		return map[ResourceKind]int{Wood: 30, Stone: 10}
	case FarmingShed:
		return map[ResourceKind]int{Wood: 20, Stone: 5}
	}
	return map[ResourceKind]int{}
}

// OwnerKind tags who a building belongs to.
type OwnerKind uint8

const (
	OwnerPublic OwnerKind = iota
	OwnerKingdom
	OwnerAgent
)

// Owner identifies a building's owner.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id,omitempty"` // kingdom or agent id; zero for public
}

// Building is a structure under construction or completed. Required is the
// immutable bill of materials; Delivered is material on site not yet
// consumed by progress. Delivered[k] never exceeds Required[k].
type Building struct {
	ID       uuid.UUID    `json:"id"`
	Type     BuildingType `json:"type"`
	Name     string       `json:"name"`
	Owner    Owner        `json:"owner"`
	Position Position     `json:"position"`

	Required  map[ResourceKind]int `json:"required"`
	Delivered map[ResourceKind]int `json:"delivered"`

	Progress float64 `json:"progress"` // 0.0–1.0, monotone
	Health   float64 `json:"health"`   // 0–100
}

// NewBuilding creates a building of the given type at progress zero.
func NewBuilding(t BuildingType, name string, owner Owner, pos Position) *Building {
	return &Building{
		ID:        uuid.New(),
		Type:      t,
		Name:      name,
		Owner:     owner,
		Position:  pos,
		Required:  t.RequiredResources(),
		Delivered: make(map[ResourceKind]int),
		Progress:  0,
		Health:    100,
	}
}

// Complete reports whether construction has finished.
func (b *Building) Complete() bool { return b.Progress >= 1.0 }

// Remaining returns the per-kind shortfall between required and delivered.
func (b *Building) Remaining() map[ResourceKind]int {
	out := make(map[ResourceKind]int)
	for kind, req := range b.Required {
		if have := b.Delivered[kind]; have < req {
			out[kind] = req - have
		}
	}
	return out
}

// deliver moves material into the ledger, capped at the requirement.
// Returns the per-kind excess that did not fit.
func (b *Building) deliver(bundle map[ResourceKind]int) map[ResourceKind]int {
	rejected := make(map[ResourceKind]int)
	for kind, qty := range bundle {
		if qty <= 0 {
			continue
		}
		req := b.Required[kind]
		have := b.Delivered[kind]
		space := req - have
		if space <= 0 {
			rejected[kind] = qty
			continue
		}
		accept := qty
		if accept > space {
			rejected[kind] = qty - space
			accept = space
		}
		b.Delivered[kind] = have + accept
	}
	return rejected
}

// advance applies one construction increment if the delivered ledger covers
// the proportional draw for every required kind. A shortfall in any kind
// stalls the whole increment: nothing is consumed and progress is
// unchanged. Returns the progress actually gained.
func (b *Building) advance(increment float64) float64 {
	if increment <= 0 || b.Complete() {
		return 0
	}
	if left := 1.0 - b.Progress; increment > left {
		increment = left
	}

	draw := make(map[ResourceKind]int, len(b.Required))
	for kind, req := range b.Required {
		need := int(math.Ceil(float64(req) * increment))
		if b.Delivered[kind] < need {
			return 0
		}
		draw[kind] = need
	}
	for kind, need := range draw {
		b.Delivered[kind] -= need
	}
	b.Progress += increment
	if b.Progress > 1 {
		b.Progress = 1
	}
	return increment
}

// Damage reduces health, floored at zero. Completed buildings stay
// completed; only health moves.
func (b *Building) Damage(amount float64) {
	b.Health -= amount
	if b.Health < 0 {
		b.Health = 0
	}
}

// Destroyed reports whether the building has lost all health.
func (b *Building) Destroyed() bool { return b.Health <= 0 }

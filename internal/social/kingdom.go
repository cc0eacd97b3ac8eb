// Package social provides the three-tier decision hierarchy data model:
// kingdoms with strategic goals, noble construction orders, and the
// permission matrix gating who may originate what.
package social

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/world"
)

// Goal is a kingdom's current strategic direction. A kingdom holds exactly
// one; setting a new goal replaces the old, nothing is queued.
type Goal uint8

const (
	DefendTerritory Goal = iota
	ExpandResources
	PrepareForWar
	GrowPopulation
	ImproveInfrastructure
	Consolidate
)

func (g Goal) String() string {
	switch g {
	case DefendTerritory:
		return "defend_territory"
	case ExpandResources:
		return "expand_resources"
	case PrepareForWar:
		return "prepare_for_war"
	case GrowPopulation:
		return "grow_population"
	case ImproveInfrastructure:
		return "improve_infrastructure"
	}
	return "consolidate"
}

// BuildingTypes returns the candidate construction types for the goal.
// Consolidate returns nil: no major projects.
func (g Goal) BuildingTypes() []world.BuildingType {
	switch g {
	case DefendTerritory:
		return []world.BuildingType{world.Walls, world.Barracks}
	case ExpandResources:
		return []world.BuildingType{world.Mine, world.Farm, world.Warehouse}
	case PrepareForWar:
		return []world.BuildingType{world.Barracks, world.Workshop}
	case GrowPopulation:
		return []world.BuildingType{world.PeasantHouse, world.Farm}
	case ImproveInfrastructure:
		return []world.BuildingType{world.MarketHall, world.Workshop, world.Tavern}
	}
	return nil
}

// Kingdom is a sovereign's realm: its strategic goal and territory.
type Kingdom struct {
	ID       uuid.UUID   `json:"id"`
	KingID   uuid.UUID   `json:"king_id"`
	NobleIDs []uuid.UUID `json:"noble_ids"`

	CurrentGoal  Goal    `json:"current_goal"`
	GoalPriority float64 `json:"goal_priority"` // 0–1 urgency
	GoalSetTick  uint64  `json:"goal_set_tick"`

	TerritoryCenter world.Position `json:"territory_center"`
	TerritoryRadius float64        `json:"territory_radius"`
}

// NewKingdom creates a kingdom for a sovereign, starting at Consolidate.
func NewKingdom(kingID uuid.UUID, center world.Position) *Kingdom {
	return &Kingdom{
		ID:              uuid.New(),
		KingID:          kingID,
		CurrentGoal:     Consolidate,
		GoalPriority:    0.5,
		TerritoryCenter: center,
		TerritoryRadius: 50,
	}
}

// OrderStatus is a noble order's lifecycle state.
type OrderStatus uint8

const (
	OrderPending OrderStatus = iota
	OrderInProgress
	OrderCompleted
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderInProgress:
		return "in_progress"
	case OrderCompleted:
		return "completed"
	}
	return "cancelled"
}

// NobleOrder is a regional authority's directive to construct a building.
// BuildingID is a weak reference — lookup only, never ownership — so a
// destroyed building cannot dangle.
type NobleOrder struct {
	ID           uuid.UUID          `json:"id"`
	NobleID      uuid.UUID          `json:"noble_id"`
	BuildingType world.BuildingType `json:"building_type"`
	Location     world.Position     `json:"location"`
	Priority     float64            `json:"priority"`

	AssignedBuilders []uuid.UUID `json:"assigned_builders"`
	BuildingID       uuid.UUID   `json:"building_id,omitempty"` // zero until materialized
	Status           OrderStatus `json:"status"`
}

// NewNobleOrder creates a pending order.
func NewNobleOrder(nobleID uuid.UUID, t world.BuildingType, loc world.Position, priority float64) *NobleOrder {
	if priority < 0 {
		priority = 0
	}
	if priority > 1 {
		priority = 1
	}
	return &NobleOrder{
		ID:           uuid.New(),
		NobleID:      nobleID,
		BuildingType: t,
		Location:     loc,
		Priority:     priority,
		Status:       OrderPending,
	}
}

// Observables are the inputs to the sovereign's goal decision.
type Observables struct {
	Hostilities        bool
	FoodPerCapita      float64
	MaterialsPerCapita float64
	Population         int
}

// Thresholds tune the goal ladder.
type Thresholds struct {
	FoodPerCapitaMin     float64
	MaterialPerCapitaMin float64
	PopulationLarge      int
}

// ResolveGoal is the sovereign's decision ladder. Pure and deterministic:
// the rules are evaluated in urgency order and the first match wins.
func ResolveGoal(obs Observables, th Thresholds) Goal {
	switch {
	case obs.Hostilities:
		return DefendTerritory
	case obs.FoodPerCapita < th.FoodPerCapitaMin:
		return GrowPopulation
	case obs.MaterialsPerCapita < th.MaterialPerCapitaMin:
		return ExpandResources
	case obs.Population > th.PopulationLarge:
		return ImproveInfrastructure
	}
	return Consolidate
}

package social

import (
	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/world"
)

// BuildingClass groups construction types by the authority needed to
// commission them.
type BuildingClass uint8

const (
	ClassMilitary BuildingClass = iota
	ClassInfrastructure
	ClassCommercial
	ClassProduction
	ClassPersonal
)

// ClassOf maps a building type to its permission class.
func ClassOf(t world.BuildingType) BuildingClass {
	switch t {
	case world.Barracks, world.Walls:
		return ClassMilitary
	case world.Warehouse, world.Church, world.NobleEstate:
		return ClassInfrastructure
	case world.MarketHall, world.Tavern:
		return ClassCommercial
	case world.Workshop, world.Farm, world.Mine:
		return ClassProduction
	}
	return ClassPersonal
}

// CanOrder reports whether an agent of the given rank may originate a
// construction order for the building type. Sovereigns may order anything;
// regional authorities everything but nothing-above-them exists; commercial
// ranks only commerce and production; everyone may raise personal
// structures. Deterministic, same inputs same answer.
func CanOrder(rank agents.SocialRank, t world.BuildingType) bool {
	class := ClassOf(t)
	switch rank {
	case agents.RankKing:
		return true
	case agents.RankNoble:
		return class != ClassPersonal || t == world.PeasantHouse || t == world.FarmingShed
	case agents.RankMerchant, agents.RankBurgher:
		return class == ClassCommercial || class == ClassProduction || t == world.Warehouse || class == ClassPersonal
	case agents.RankKnight, agents.RankSoldier, agents.RankCleric, agents.RankPeasant:
		return class == ClassPersonal
	}
	return false
}

package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/social"
	"github.com/talgya/crownworks/internal/world"
)

// kingDecisions runs each sovereign's strategic pass: observe the world,
// walk the goal ladder, set the kingdom's goal. A king without a realm
// founds one on the spot; unattached nobles swear to the nearest crown.
func (s *Simulation) kingDecisions(tick uint64) {
	living := s.Agents.Living()
	obs := s.observe(living)

	var kings []agents.Agent
	var nobles []agents.Agent
	for _, a := range living {
		switch a.Rank {
		case agents.RankKing:
			kings = append(kings, a)
		case agents.RankNoble:
			nobles = append(nobles, a)
		}
	}

	kingdomByKing := make(map[uuid.UUID]social.Kingdom, len(kings))
	for _, king := range kings {
		kingdomByKing[king.ID] = s.Kingdoms.EnsureKingdom(king.ID, king.Position)
	}

	for _, noble := range nobles {
		if _, sworn := s.Kingdoms.KingdomOf(noble.ID); sworn {
			continue
		}
		var liege *agents.Agent
		bestDist := 0.0
		for i, king := range kings {
			d := king.Position.DistanceTo(noble.Position)
			if liege == nil || d < bestDist {
				liege = &kings[i]
				bestDist = d
			}
		}
		if liege != nil {
			s.Kingdoms.AttachNoble(kingdomByKing[liege.ID].ID, noble.ID)
		}
	}

	th := social.Thresholds{
		FoodPerCapitaMin:     s.Cfg.FoodPerCapitaMin,
		MaterialPerCapitaMin: s.Cfg.MaterialPerCapitaMin,
		PopulationLarge:      s.Cfg.PopulationLarge,
	}
	for _, king := range kings {
		kingdom := kingdomByKing[king.ID]
		goal := social.ResolveGoal(obs, th)
		if s.Kingdoms.SetGoal(kingdom.ID, goal, goalPriority(goal), tick) {
			s.record(tick, "hierarchy", fmt.Sprintf("%s sets the realm toward %s", king.Name, goal))
		}
	}
}

// observe gathers the sovereign's observables: population, stores per
// capita across agent inventories and market stock, and open hostilities.
func (s *Simulation) observe(living []agents.Agent) social.Observables {
	obs := social.Observables{Population: len(living)}

	food := 0
	materials := 0
	for _, a := range living {
		food += a.Inventory[world.Food]
		materials += a.Inventory[world.Wood] + a.Inventory[world.Stone] + a.Inventory[world.Iron]
		if a.State.Kind == agents.StateFighting {
			obs.Hostilities = true
		}
	}
	for _, m := range s.Markets.Snapshot() {
		food += m.Stock[world.Food]
		materials += m.Stock[world.Wood] + m.Stock[world.Stone] + m.Stock[world.Iron]
	}

	if obs.Population > 0 {
		obs.FoodPerCapita = float64(food) / float64(obs.Population)
		obs.MaterialsPerCapita = float64(materials) / float64(obs.Population)
	}
	return obs
}

func goalPriority(g social.Goal) float64 {
	switch g {
	case social.DefendTerritory:
		return 0.9
	case social.GrowPopulation:
		return 0.7
	case social.ExpandResources:
		return 0.6
	case social.PrepareForWar:
		return 0.6
	case social.ImproveInfrastructure:
		return 0.5
	}
	return 0.3
}

// nobleDecisions lets each sworn noble originate at most one construction
// order serving the realm's goal, gated by a bounded probability roll and
// the permission matrix. A noble with work already open stands pat.
func (s *Simulation) nobleDecisions(tick uint64) {
	for _, a := range s.Agents.Living() {
		if a.Rank != agents.RankNoble {
			continue
		}
		kingdom, sworn := s.Kingdoms.KingdomOf(a.ID)
		if !sworn {
			continue
		}
		candidates := kingdom.CurrentGoal.BuildingTypes()
		if len(candidates) == 0 {
			continue
		}
		if s.Kingdoms.OpenOrderCount(a.ID) > 0 {
			continue
		}
		if !s.Rng.Chance(s.Cfg.NobleOrderChance) {
			continue
		}

		t := candidates[s.Rng.Intn(len(candidates))]
		if !social.CanOrder(a.Rank, t) {
			continue
		}

		r := s.Cfg.OrderSiteRadius
		site := world.Position{
			X: a.Position.X + s.Rng.Range(-r, r),
			Z: a.Position.Z + s.Rng.Range(-r, r),
		}.Clamp(s.Cfg.WorldSize)

		order := social.NewNobleOrder(a.ID, t, site, kingdom.GoalPriority)
		s.Kingdoms.AddOrder(order)
		s.record(tick, "hierarchy", fmt.Sprintf("%s orders a %s built", a.Name, t))
	}
}

// selfBuildDecisions gives commoners their own initiative: a peasant with
// no qualifying structure nearby occasionally raises one, permission
// matrix willing, and works the site personally.
func (s *Simulation) selfBuildDecisions(tick uint64) {
	for _, a := range s.Agents.Living() {
		if a.Rank != agents.RankPeasant || a.Carrying != nil {
			continue
		}
		if !s.Rng.Chance(s.Cfg.SelfBuildChance) {
			continue
		}

		t := world.PeasantHouse
		if a.Job == agents.JobFarmer {
			t = world.FarmingShed
		}
		if !social.CanOrder(a.Rank, t) {
			continue
		}
		if len(s.Buildings.OwnedBy(a.ID, a.Position, s.Cfg.SelfBuildRadius, &t)) > 0 {
			continue
		}

		b := world.NewBuilding(t,
			fmt.Sprintf("%s of %s", t, a.Name),
			world.Owner{Kind: world.OwnerAgent, ID: a.ID},
			a.Position)
		s.Buildings.Add(b)
		s.assignBuilder(a.ID, b.ID)
		s.record(tick, "hierarchy", fmt.Sprintf("%s starts a %s", a.Name, t))
	}
}

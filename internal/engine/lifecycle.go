package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/world"
)

const (
	starveDeathChance = 0.10
	maxBirthsPerCycle = 5
)

// feedAndReap runs the population lifecycle: everyone eats a meal, the
// starving risk death, estates escheat to the nearest market treasury,
// and newcomers replace losses at the bottom of the pyramid.
func (s *Simulation) feedAndReap(tick uint64) {
	var starving []uuid.UUID
	s.Agents.MutateLiving(func(a *agents.Agent) {
		if a.Inventory[world.Food] > 0 {
			a.Inventory[world.Food]--
			return
		}
		starving = append(starving, a.ID)
	})

	deaths := 0
	escheat := 0.0
	var dead []uuid.UUID
	for _, id := range starving {
		if !s.Rng.Chance(starveDeathChance) {
			continue
		}
		var name string
		var wasNoble bool
		s.Agents.Mutate(id, func(a *agents.Agent) {
			name = a.Name
			wasNoble = a.Rank == agents.RankNoble
			escheat += a.Wallet
			a.Wallet = 0
			a.Alive = false
		})
		if wasNoble {
			s.Kingdoms.CancelOrdersBy(id)
		}
		dead = append(dead, id)
		deaths++
		s.record(tick, "lifecycle", fmt.Sprintf("%s starved", name))
	}

	// Pull the dead out of the order books too, or their bids and asks
	// would sit in the queues forever blocking settlement slots.
	for _, id := range dead {
		s.Markets.CancelOrdersBy(id)
	}

	// Dying intestate hands the purse to the nearest market; goods rot
	// with the body but coin must stay in circulation.
	if escheat > 0 {
		if ids := s.Markets.IDs(); len(ids) > 0 {
			s.Markets.CreditTreasury(ids[0], escheat)
		}
	}
	s.Agents.RemoveDead()

	births := 0
	pop := s.Agents.CountLiving()
	for pop+births < s.Cfg.SpawnCount && births < maxBirthsPerCycle {
		a := s.Spawner.Spawn(agents.RankPeasant, tick)
		s.Agents.Add(a)
		// Newcomers arrive with coin; mint it so supply accounting holds.
		s.Currency.MintWages(a.Wallet)
		s.record(tick, "lifecycle", fmt.Sprintf("%s arrives seeking work", a.Name))
		births++
	}
	s.bumpLifecycle(deaths, births)
}

package engine

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/world"
)

// materializeOrders turns pending noble orders into construction sites
// with assigned crews, highest priority first. An order with no builder
// available stays pending and is retried next cycle.
func (s *Simulation) materializeOrders(tick uint64) {
	pending := s.Kingdoms.PendingOrders()
	if len(pending) == 0 {
		return
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return bytes.Compare(pending[i].ID[:], pending[j].ID[:]) < 0
	})

	idle := s.idleBuilders()

	for _, order := range pending {
		if len(idle) == 0 {
			return
		}

		// Nearest builders first.
		sort.Slice(idle, func(i, j int) bool {
			return idle[i].Position.DistanceTo(order.Location) < idle[j].Position.DistanceTo(order.Location)
		})
		crewSize := maxCrew
		if crewSize > len(idle) {
			crewSize = len(idle)
		}
		crew := idle[:crewSize]
		idle = idle[crewSize:]

		owner := world.Owner{Kind: world.OwnerAgent, ID: order.NobleID}
		name := order.BuildingType.String()
		if kingdom, ok := s.Kingdoms.KingdomOf(order.NobleID); ok {
			owner = world.Owner{Kind: world.OwnerKingdom, ID: kingdom.ID}
		}
		if noble, ok := s.Agents.Get(order.NobleID); ok {
			name = fmt.Sprintf("%s of %s", order.BuildingType, noble.Name)
		}

		b := world.NewBuilding(order.BuildingType, name, owner, order.Location)
		s.Buildings.Add(b)

		crewIDs := make([]uuid.UUID, len(crew))
		for i, builder := range crew {
			crewIDs[i] = builder.ID
			s.assignBuilder(builder.ID, b.ID)
		}
		s.Kingdoms.StartOrder(order.ID, b.ID, crewIDs)
		s.record(tick, "construction", fmt.Sprintf("%s started with crew of %d", name, len(crew)))
	}
}

func (s *Simulation) idleBuilders() []agents.Agent {
	var out []agents.Agent
	for _, a := range s.Agents.Living() {
		if a.Job == agents.JobBuilder && a.Carrying == nil {
			out = append(out, a)
		}
	}
	return out
}

// assignBuilder binds an agent to a site. The payload starts empty: the
// binding says who the agent builds for, material appears only once
// acquired.
func (s *Simulation) assignBuilder(agentID, buildingID uuid.UUID) {
	s.Agents.Mutate(agentID, func(ag *agents.Agent) {
		ag.Carrying = &agents.CarryPayload{
			TargetBuilding: buildingID,
			Bundle:         make(map[world.ResourceKind]int),
		}
		ag.State = agents.State{Kind: agents.StateBuilding, Target: buildingID}
	})
}

// releaseBuilder unbinds an agent from its site, folding any undelivered
// material back into personal inventory. Payload weight already counted
// against capacity, so the fold never overflows.
func (s *Simulation) releaseBuilder(agentID uuid.UUID) {
	s.Agents.Mutate(agentID, func(ag *agents.Agent) {
		if ag.Carrying != nil {
			for kind, qty := range ag.Carrying.Bundle {
				ag.Inventory[kind] += qty
			}
		}
		ag.Carrying = nil
		ag.State = agents.Idle
	})
}

// builderLogistics drives every bound builder through its loop: acquire
// material (own stock first, then market purchases), haul it to the site,
// deliver. Destinations set here are walked by the fast movement pass.
func (s *Simulation) builderLogistics(tick uint64) {
	for _, a := range s.Agents.Living() {
		if a.Carrying == nil {
			continue
		}
		site, ok := s.Buildings.Get(a.Carrying.TargetBuilding)
		if !ok || site.Complete() {
			s.releaseBuilder(a.ID)
			continue
		}

		if !a.Carrying.Empty() {
			s.haulToSite(a, site)
			continue
		}

		remaining := site.Remaining()
		if len(remaining) == 0 {
			// Fully provisioned; just be present so progress advances.
			s.ensureAt(a, site.Position, taskBuild, site.ID)
			continue
		}
		s.acquireMaterial(a, site, remaining)
	}
}

// haulToSite walks the builder to the site and hands the payload over.
// Delivery is capped at the requirement; excess folds back into inventory.
func (s *Simulation) haulToSite(a agents.Agent, site world.Building) {
	if a.Position.DistanceTo(site.Position) > s.Cfg.BuildRadius {
		s.ensureAt(a, site.Position, taskHaul, site.ID)
		return
	}
	bundle := a.Carrying.Bundle
	rejected, ok := s.Buildings.Deliver(site.ID, bundle)
	if !ok {
		s.releaseBuilder(a.ID)
		return
	}
	s.Agents.Mutate(a.ID, func(ag *agents.Agent) {
		if ag.Carrying == nil {
			return
		}
		for kind, qty := range rejected {
			ag.Inventory[kind] += qty
		}
		ag.Carrying.Bundle = make(map[world.ResourceKind]int)
		ag.State = agents.State{Kind: agents.StateBuilding, Target: site.ID}
	})
}

// acquireMaterial fills the payload from the builder's own surplus, then
// buys the rest at the nearest market, bounded by wallet, carry headroom,
// and market stock. A builder who can obtain nothing this cycle waits at
// the market and retries.
func (s *Simulation) acquireMaterial(a agents.Agent, site world.Building, remaining map[world.ResourceKind]int) {
	moved := false
	s.Agents.Mutate(a.ID, func(ag *agents.Agent) {
		if ag.Carrying == nil {
			return
		}
		for kind, need := range remaining {
			give := ag.Surplus(kind)
			if give > need {
				give = need
			}
			if give <= 0 {
				continue
			}
			ag.Inventory[kind] -= give
			ag.Carrying.Bundle[kind] += give
			moved = true
		}
	})
	if moved {
		return // haul what we have, buy more next round
	}

	m, ok := s.Markets.Nearest(a.Position)
	if !ok {
		return
	}
	if a.Position.DistanceTo(m.Position) > s.Cfg.ArriveRadius {
		s.ensureAt(a, m.Position, taskHaul, site.ID)
		return
	}

	wallet := a.Wallet
	free := a.FreeCapacity()
	for kind, need := range remaining {
		if free <= 0 || wallet <= 0 {
			break
		}
		stock, price, _, found := s.Markets.StockAndPrice(m.ID, kind)
		if !found || price <= 0 || stock == 0 {
			continue
		}
		qty := need
		if qty > free {
			qty = free
		}
		if afford := int(wallet / price); qty > afford {
			qty = afford
		}
		if qty <= 0 {
			continue
		}
		sold := s.Markets.ApplyStockSale(m.ID, kind, qty, price)
		if sold == 0 {
			continue
		}
		cost := price * float64(sold)
		wallet -= cost
		free -= sold
		s.Agents.Mutate(a.ID, func(ag *agents.Agent) {
			if ag.Carrying == nil {
				return
			}
			ag.Wallet -= cost
			ag.Carrying.Bundle[kind] += sold
		})
	}
}

// ensureAt points the agent at a destination unless already walking there.
func (s *Simulation) ensureAt(a agents.Agent, dest world.Position, task string, target uuid.UUID) {
	if a.State.Kind == agents.StateMoving && a.State.Destination != nil && *a.State.Destination == dest {
		return
	}
	s.sendTo(a.ID, dest, task, target)
}

// advanceConstruction applies one progress increment per site scaled by
// the builders present, completes finished work, and sweeps destroyed
// sites. A site whose ledger cannot cover the proportional draw stalls
// whole: the increment is retried next cycle.
func (s *Simulation) advanceConstruction(tick uint64) {
	living := s.Agents.Living()

	crews := make(map[uuid.UUID][]uuid.UUID)
	present := make(map[uuid.UUID]int)
	for _, a := range living {
		if a.Carrying == nil {
			continue
		}
		site := a.Carrying.TargetBuilding
		crews[site] = append(crews[site], a.ID)
	}

	for _, b := range s.Buildings.Incomplete() {
		for _, a := range living {
			if a.Carrying != nil && a.Carrying.TargetBuilding == b.ID &&
				a.Position.DistanceTo(b.Position) <= s.Cfg.BuildRadius {
				present[b.ID]++
			}
		}
		n := present[b.ID]
		if n == 0 {
			continue
		}

		_, completed := s.Buildings.Advance(b.ID, s.Cfg.ProgressPerBuilder*float64(n))
		if !completed {
			continue
		}
		for _, id := range crews[b.ID] {
			s.releaseBuilder(id)
		}
		if n := s.Kingdoms.CompleteForBuilding(b.ID); n > 0 {
			s.record(tick, "hierarchy", fmt.Sprintf("noble order fulfilled: %s", b.Name))
		}
		s.record(tick, "construction", fmt.Sprintf("%s completed", b.Name))
	}

	for _, gone := range s.Buildings.SweepDestroyed() {
		s.Kingdoms.CancelForBuilding(gone)
		for _, id := range crews[gone] {
			s.releaseBuilder(id)
		}
		s.record(tick, "construction", "a building collapsed")
	}
}

package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/agents"
	"github.com/talgya/crownworks/internal/economy"
	"github.com/talgya/crownworks/internal/world"
)

// Limit price spreads relative to the market's current price. Sellers
// undercut, buyers pay up, so overlapping books clear quickly.
const (
	sellDiscount = 0.90
	buyPremium   = 1.15
	traderLot    = 5
)

// placeOrders turns each agent's surplus and shortfall into limit orders
// at its nearest market. An agent with anything already queued at that
// market sits the cycle out, which keeps books bounded.
func (s *Simulation) placeOrders(tick uint64) {
	markets := s.Markets.Snapshot()
	if len(markets) == 0 {
		return
	}

	queued := make(map[uuid.UUID]map[uuid.UUID]bool, len(markets))
	for _, m := range markets {
		set := make(map[uuid.UUID]bool)
		for _, o := range m.Buys {
			set[o.AgentID] = true
		}
		for _, o := range m.Sells {
			set[o.AgentID] = true
		}
		queued[m.ID] = set
	}

	for _, a := range s.Agents.Living() {
		if a.Carrying != nil {
			continue
		}
		m := nearestMarket(markets, a.Position)
		if queued[m.ID][a.ID] {
			continue
		}
		placed := false

		for _, kind := range world.AllResources {
			price := m.Price(kind)
			if price <= 0 {
				continue
			}

			if surplus := a.Surplus(kind); surplus > 0 {
				_, err := s.Markets.PlaceOrder(m.ID, economy.Sell, a.ID, kind, surplus, price*sellDiscount, a.Inventory[kind])
				placed = placed || err == nil
				continue
			}

			if short := a.Shortfall(kind); short > 0 {
				limit := price * buyPremium
				qty := short
				if afford := int(a.Wallet / limit); qty > afford {
					qty = afford
				}
				if free := a.FreeCapacity(); qty > free {
					qty = free
				}
				if qty <= 0 {
					continue
				}
				_, err := s.Markets.PlaceOrder(m.ID, economy.Buy, a.ID, kind, qty, limit, 0)
				placed = placed || err == nil
			}
		}

		// Traders speculate: accumulate whatever trades below base, dump
		// holdings above their needs when price runs past base.
		if !placed && a.Job == agents.JobTrader {
			s.traderOrders(&m, a)
		}
	}
}

func (s *Simulation) traderOrders(m *economy.Market, a agents.Agent) {
	for _, kind := range world.AllResources {
		base := m.BasePrices[kind]
		price := m.Price(kind)
		if base <= 0 {
			continue
		}
		switch {
		case price < base && a.Wallet >= price*float64(traderLot) && a.FreeCapacity() >= traderLot:
			s.Markets.PlaceOrder(m.ID, economy.Buy, a.ID, kind, traderLot, price, 0)
			return
		case price > base && a.Surplus(kind) > 0:
			s.Markets.PlaceOrder(m.ID, economy.Sell, a.ID, kind, a.Surplus(kind), price, a.Inventory[kind])
			return
		}
	}
}

func nearestMarket(markets []economy.Market, pos world.Position) economy.Market {
	best := markets[0]
	bestDist := best.Position.DistanceTo(pos)
	for _, m := range markets[1:] {
		if d := m.Position.DistanceTo(pos); d < bestDist {
			best = m
			bestDist = d
		}
	}
	return best
}

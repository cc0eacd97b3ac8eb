package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/economy"
	"github.com/talgya/crownworks/internal/world"
)

// settleMarkets runs one settlement cycle per market. The locking shape is
// the core of the design: copy the agent balances, copy the book, match on
// the copies with no lock held, then apply each executed trade through the
// agent container and commit the remaining book back — one container at a
// time, strictly in sequence.
func (s *Simulation) settleMarkets(tick uint64) {
	tuning := economy.PriceTuning{
		ClampMin:       s.Cfg.PriceClampMin,
		ClampMax:       s.Cfg.PriceClampMax,
		Step:           s.Cfg.PriceStep,
		ReferenceStock: s.Cfg.ReferenceStock,
	}

	view := s.ledgerView()

	for _, marketID := range s.Markets.IDs() {
		buys, sells, ok := s.Markets.BookCopy(marketID)
		if !ok {
			continue
		}

		res := economy.SettleBook(marketID, buys, sells, view)

		// The view said these can settle; the agent container has final
		// say. A trade it rejects is simply dropped this cycle.
		applied := 0
		volume := 0.0
		for _, t := range res.Trades {
			if s.Agents.ApplyTrade(t.BuyerID, t.SellerID, t.Kind, t.Quantity, t.Price) {
				applied++
				volume += t.Value()
			}
		}

		s.Markets.CommitSettlement(marketID, res, applied, tuning)

		if applied > 0 {
			s.Currency.RecordTrades(volume, applied)
			s.record(tick, "economy", fmt.Sprintf("%d trades settled (%.0f coin)", applied, volume))
		}
	}
}

// ledgerView copies wallets, inventories, and carry headroom for every
// living agent. One read pass feeds every market's settlement this cycle.
func (s *Simulation) ledgerView() *economy.LedgerView {
	view := &economy.LedgerView{
		Wallets:   make(map[uuid.UUID]float64),
		Inventory: make(map[uuid.UUID]map[world.ResourceKind]int),
		FreeCarry: make(map[uuid.UUID]int),
	}
	for _, a := range s.Agents.Living() {
		view.Wallets[a.ID] = a.Wallet
		view.Inventory[a.ID] = a.Inventory
		view.FreeCarry[a.ID] = a.FreeCapacity()
	}
	return view
}

package economy

import (
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/world"
)

// LedgerView is a copied view of agent balances used to decide which
// matched pairs can actually settle. Settlement simulates debits against
// the view so a buyer cannot overspend across several trades in one cycle.
// The view is read from the agent container before settlement and the
// resulting trades are applied to it after — no agent lock is held while
// the market book is being worked.
type LedgerView struct {
	Wallets   map[uuid.UUID]float64
	Inventory map[uuid.UUID]map[world.ResourceKind]int
	FreeCarry map[uuid.UUID]int
}

// SettleResult is the outcome of one settlement pass over a book.
type SettleResult struct {
	Trades []Trade
	Buys   []Order // remaining, partially filled orders keep reduced quantity
	Sells  []Order
}

// SettleBook matches a market's order book against the ledger view. Pure
// function over copies: for each resource kind it repeatedly pairs the
// highest-limit buy with the lowest-limit sell (ties broken by insertion
// sequence), executes at the mean of the two limits, and leaves partial
// fills queued. A pair whose buyer cannot pay or store the goods is
// skipped — both orders stay queued for the next cycle — and matching
// continues with the next candidate buy.
func SettleBook(marketID uuid.UUID, buys, sells []Order, view *LedgerView) SettleResult {
	res := SettleResult{}

	byKindBuys := make(map[world.ResourceKind][]Order)
	byKindSells := make(map[world.ResourceKind][]Order)
	for _, o := range buys {
		byKindBuys[o.Kind] = append(byKindBuys[o.Kind], o)
	}
	for _, o := range sells {
		byKindSells[o.Kind] = append(byKindSells[o.Kind], o)
	}

	for _, kind := range world.AllResources {
		bq := byKindBuys[kind]
		sq := byKindSells[kind]
		if len(bq) == 0 || len(sq) == 0 {
			res.Buys = append(res.Buys, bq...)
			res.Sells = append(res.Sells, sq...)
			continue
		}

		// Highest limit first for buys, lowest first for sells; earlier
		// insertion wins at equal price.
		sort.SliceStable(bq, func(i, j int) bool {
			if bq[i].LimitPrice != bq[j].LimitPrice {
				return bq[i].LimitPrice > bq[j].LimitPrice
			}
			return bq[i].Seq < bq[j].Seq
		})
		sort.SliceStable(sq, func(i, j int) bool {
			if sq[i].LimitPrice != sq[j].LimitPrice {
				return sq[i].LimitPrice < sq[j].LimitPrice
			}
			return sq[i].Seq < sq[j].Seq
		})

		bi, si := 0, 0
		skippedBuys := make([]Order, 0)
		for bi < len(bq) && si < len(sq) {
			buy := &bq[bi]
			sell := &sq[si]
			if buy.LimitPrice < sell.LimitPrice {
				break
			}

			qty := buy.Quantity
			if sell.Quantity < qty {
				qty = sell.Quantity
			}
			price := (buy.LimitPrice + sell.LimitPrice) / 2
			cost := price * float64(qty)

			if view.Inventory[sell.AgentID][kind] < qty {
				// Seller spent the goods since placement; the order
				// stays queued but cannot settle this cycle.
				res.Sells = append(res.Sells, *sell)
				si++
				continue
			}
			if view.Wallets[buy.AgentID] < cost || view.FreeCarry[buy.AgentID] < qty {
				// Skip this buyer, keep the order queued, try the next
				// candidate against the same sell order.
				skippedBuys = append(skippedBuys, *buy)
				bi++
				continue
			}

			// Execute against the view so later pairs see the debits.
			view.Wallets[buy.AgentID] -= cost
			view.Wallets[sell.AgentID] += cost
			view.Inventory[sell.AgentID][kind] -= qty
			view.FreeCarry[buy.AgentID] -= qty
			view.FreeCarry[sell.AgentID] += qty

			res.Trades = append(res.Trades, Trade{
				MarketID: marketID,
				BuyerID:  buy.AgentID,
				SellerID: sell.AgentID,
				Kind:     kind,
				Quantity: qty,
				Price:    price,
			})

			buy.Quantity -= qty
			sell.Quantity -= qty
			if buy.Quantity == 0 {
				bi++
			}
			if sell.Quantity == 0 {
				si++
			}
		}

		res.Buys = append(res.Buys, skippedBuys...)
		for ; bi < len(bq); bi++ {
			res.Buys = append(res.Buys, bq[bi])
		}
		for ; si < len(sq); si++ {
			res.Sells = append(res.Sells, sq[si])
		}
	}

	return res
}

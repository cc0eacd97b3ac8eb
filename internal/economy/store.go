package economy

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/lockcheck"
	"github.com/talgya/crownworks/internal/world"
)

// MarketStore holds every market behind a read/write lock. Order placement
// and settlement commits take the write lock for one operation each; the
// settlement computation itself runs outside any lock on copied books.
type MarketStore struct {
	lock    lockcheck.Guarded
	markets map[uuid.UUID]*Market
}

// NewMarketStore creates an empty store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		lock:    lockcheck.NewGuarded(lockcheck.RankMarkets),
		markets: make(map[uuid.UUID]*Market),
	}
}

// SetAuditor installs a lock auditor for tests.
func (s *MarketStore) SetAuditor(a lockcheck.Auditor) { s.lock.SetAuditor(a) }

// Add inserts a market.
func (s *MarketStore) Add(m *Market) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.markets[m.ID] = m
}

// IDs returns every market id in stable byte order, so passes that walk
// all markets run in the same sequence every cycle.
func (s *MarketStore) IDs() []uuid.UUID {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]uuid.UUID, 0, len(s.markets))
	for id := range s.markets {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// Snapshot returns deep copies of every market.
func (s *MarketStore) Snapshot() []Market {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, copyMarket(m))
	}
	return out
}

// Get returns a deep copy, or false if unknown.
func (s *MarketStore) Get(id uuid.UUID) (Market, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return Market{}, false
	}
	return copyMarket(m), true
}

// Nearest returns a deep copy of the closest market to pos.
func (s *MarketStore) Nearest(pos world.Position) (Market, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var best *Market
	bestDist := 0.0
	for _, m := range s.markets {
		d := m.Position.DistanceTo(pos)
		if best == nil || d < bestDist {
			best = m
			bestDist = d
		}
	}
	if best == nil {
		return Market{}, false
	}
	return copyMarket(best), true
}

// PlaceOrder queues an order. Sell orders are validated against
// sellerHolds, the seller's current inventory of the kind as read by the
// caller; an under-collateralized sell is rejected with
// ErrInsufficientInventory and nothing is queued.
func (s *MarketStore) PlaceOrder(marketID uuid.UUID, side OrderSide, agentID uuid.UUID, kind world.ResourceKind, qty int, limit float64, sellerHolds int) (uuid.UUID, error) {
	if qty <= 0 || limit <= 0 {
		return uuid.Nil, ErrBadOrder
	}
	if side == Sell && sellerHolds < qty {
		return uuid.Nil, ErrInsufficientInventory
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return uuid.Nil, ErrUnknownMarket
	}

	m.nextSeq++
	o := Order{
		ID:         uuid.New(),
		AgentID:    agentID,
		Kind:       kind,
		Quantity:   qty,
		LimitPrice: limit,
		Seq:        m.nextSeq,
	}
	if side == Buy {
		m.Buys = append(m.Buys, o)
	} else {
		m.Sells = append(m.Sells, o)
	}
	return o.ID, nil
}

// CancelOrdersBy removes every queued order placed by the agent, across
// all books. Called when an agent dies so its bids and asks do not sit in
// the queues forever. Returns the number of orders removed.
func (s *MarketStore) CancelOrdersBy(agentID uuid.UUID) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, m := range s.markets {
		m.Buys, n = dropOrdersBy(m.Buys, agentID, n)
		m.Sells, n = dropOrdersBy(m.Sells, agentID, n)
	}
	return n
}

func dropOrdersBy(book []Order, agentID uuid.UUID, n int) ([]Order, int) {
	kept := book[:0]
	for _, o := range book {
		if o.AgentID == agentID {
			n++
			continue
		}
		kept = append(kept, o)
	}
	return kept, n
}

// BookCopy returns copies of the order queues for settlement computation.
func (s *MarketStore) BookCopy(marketID uuid.UUID) (buys, sells []Order, ok bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m, found := s.markets[marketID]
	if !found {
		return nil, nil, false
	}
	return append([]Order(nil), m.Buys...), append([]Order(nil), m.Sells...), true
}

// CommitSettlement installs the post-settlement book, counts the executed
// trades, and runs the repricing pass. applied is the number of trades
// that survived authoritative wallet/inventory application.
func (s *MarketStore) CommitSettlement(marketID uuid.UUID, res SettleResult, applied int, t PriceTuning) {
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return
	}
	m.Buys = res.Buys
	m.Sells = res.Sells
	m.Transactions += uint64(applied)
	m.reprice(t)
}

// StockAndPrice reads the direct-sale state for one kind.
func (s *MarketStore) StockAndPrice(marketID uuid.UUID, kind world.ResourceKind) (stock int, price float64, treasury float64, ok bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m, found := s.markets[marketID]
	if !found {
		return 0, 0, 0, false
	}
	return m.Stock[kind], m.Price(kind), m.Treasury, true
}

// ApplyStockSale records a direct purchase from market stock: goods out,
// revenue into the treasury. Quantities are clamped to available stock.
// Returns the quantity actually sold.
func (s *MarketStore) ApplyStockSale(marketID uuid.UUID, kind world.ResourceKind, qty int, unitPrice float64) int {
	if qty <= 0 {
		return 0
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return 0
	}
	if have := m.Stock[kind]; qty > have {
		qty = have
	}
	if qty <= 0 {
		return 0
	}
	m.Stock[kind] -= qty
	m.Treasury += unitPrice * float64(qty)
	m.Transactions++
	return qty
}

// ApplyStockPurchase records a direct sale to the market: goods in,
// payment out of the treasury. The quantity is clamped so the treasury
// never goes negative. Returns the quantity bought and the total paid.
func (s *MarketStore) ApplyStockPurchase(marketID uuid.UUID, kind world.ResourceKind, qty int, unitPrice float64) (int, float64) {
	if qty <= 0 || unitPrice <= 0 {
		return 0, 0
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return 0, 0
	}
	affordable := int(m.Treasury / unitPrice)
	if qty > affordable {
		qty = affordable
	}
	if qty <= 0 {
		return 0, 0
	}
	paid := unitPrice * float64(qty)
	m.Stock[kind] += qty
	m.Treasury -= paid
	m.Transactions++
	return qty, paid
}

// CreditTreasury adds coin directly to a market's treasury. Escheat from
// agents who die intestate lands here so circulating money is conserved.
func (s *MarketStore) CreditTreasury(marketID uuid.UUID, amount float64) {
	if amount <= 0 {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if m, ok := s.markets[marketID]; ok {
		m.Treasury += amount
	}
}

// TotalTreasury sums market treasuries for conservation accounting.
func (s *MarketStore) TotalTreasury() float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	total := 0.0
	for _, m := range s.markets {
		total += m.Treasury
	}
	return total
}

func copyMarket(m *Market) Market {
	dup := *m
	dup.Buys = append([]Order(nil), m.Buys...)
	dup.Sells = append([]Order(nil), m.Sells...)
	dup.Stock = make(map[world.ResourceKind]int, len(m.Stock))
	for k, v := range m.Stock {
		dup.Stock[k] = v
	}
	dup.Prices = make(map[world.ResourceKind]float64, len(m.Prices))
	for k, v := range m.Prices {
		dup.Prices[k] = v
	}
	dup.BasePrices = make(map[world.ResourceKind]float64, len(m.BasePrices))
	for k, v := range m.BasePrices {
		dup.BasePrices[k] = v
	}
	return dup
}

// Package economy provides the market engine — order books, settlement,
// price discovery — and the world currency ledger.
package economy

import (
	"errors"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/world"
)

// Local economic rejections. Callers skip and retry next cycle; none of
// these is ever fatal.
var (
	ErrInsufficientInventory = errors.New("seller does not hold the offered quantity")
	ErrUnknownMarket         = errors.New("unknown market")
	ErrBadOrder              = errors.New("order quantity and price must be positive")
)

// Specialty is the kind of goods a market preferentially handles.
type Specialty uint8

const (
	SpecGeneral Specialty = iota
	SpecFood
	SpecMaterials
)

func (s Specialty) String() string {
	switch s {
	case SpecFood:
		return "food"
	case SpecMaterials:
		return "materials"
	}
	return "general"
}

// OrderSide tags buy versus sell.
type OrderSide uint8

const (
	Buy OrderSide = iota
	Sell
)

// Order is one queued trade request. Seq is the market-local insertion
// sequence used for deterministic tie-breaks at equal limit prices.
type Order struct {
	ID         uuid.UUID          `json:"id"`
	AgentID    uuid.UUID          `json:"agent_id"`
	Kind       world.ResourceKind `json:"kind"`
	Quantity   int                `json:"quantity"`
	LimitPrice float64            `json:"limit_price"`
	Seq        uint64             `json:"seq"`
}

// Market is one trading venue: paired order queues, direct-sale stock, a
// treasury backing stock purchases, and per-resource price state.
type Market struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Position  world.Position
	Specialty Specialty `json:"specialty"`

	Buys  []Order `json:"buys"`
	Sells []Order `json:"sells"`

	Stock    map[world.ResourceKind]int `json:"stock"`
	Treasury float64                    `json:"treasury"`

	Prices     map[world.ResourceKind]float64 `json:"prices"`
	BasePrices map[world.ResourceKind]float64 `json:"base_prices"`

	Transactions uint64 `json:"transactions"`

	nextSeq uint64
}

// NewMarket creates a market with current prices at base.
func NewMarket(name string, pos world.Position, spec Specialty, basePrices map[world.ResourceKind]float64, treasury float64) *Market {
	prices := make(map[world.ResourceKind]float64, len(basePrices))
	bases := make(map[world.ResourceKind]float64, len(basePrices))
	for kind, base := range basePrices {
		prices[kind] = base
		bases[kind] = base
	}
	return &Market{
		ID:         uuid.New(),
		Name:       name,
		Position:   pos,
		Specialty:  spec,
		Stock:      make(map[world.ResourceKind]int),
		Treasury:   treasury,
		Prices:     prices,
		BasePrices: bases,
	}
}

// Price returns the current price for the kind, falling back to base.
func (m *Market) Price(kind world.ResourceKind) float64 {
	if p, ok := m.Prices[kind]; ok {
		return p
	}
	return m.BasePrices[kind]
}

// Trade is one executed settlement between a matched buy/sell pair.
type Trade struct {
	MarketID uuid.UUID          `json:"market_id"`
	BuyerID  uuid.UUID          `json:"buyer_id"`
	SellerID uuid.UUID          `json:"seller_id"`
	Kind     world.ResourceKind `json:"kind"`
	Quantity int                `json:"quantity"`
	Price    float64            `json:"price"` // per unit, mean of the two limits
}

// Value is the total money moved by the trade.
func (t Trade) Value() float64 { return t.Price * float64(t.Quantity) }

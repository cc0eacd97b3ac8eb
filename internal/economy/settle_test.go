package economy

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownworks/internal/world"
)

func newView(agents ...uuid.UUID) *LedgerView {
	view := &LedgerView{
		Wallets:   make(map[uuid.UUID]float64),
		Inventory: make(map[uuid.UUID]map[world.ResourceKind]int),
		FreeCarry: make(map[uuid.UUID]int),
	}
	for _, id := range agents {
		view.Inventory[id] = make(map[world.ResourceKind]int)
		view.FreeCarry[id] = 100
	}
	return view
}

func TestSettleExecutesAtMeanOfLimits(t *testing.T) {
	marketID := uuid.New()
	buyer, seller := uuid.New(), uuid.New()

	view := newView(buyer, seller)
	view.Wallets[buyer] = 200
	view.Inventory[seller][world.Wood] = 50

	sells := []Order{{ID: uuid.New(), AgentID: seller, Kind: world.Wood, Quantity: 20, LimitPrice: 4.5, Seq: 1}}
	buys := []Order{{ID: uuid.New(), AgentID: buyer, Kind: world.Wood, Quantity: 20, LimitPrice: 6.0, Seq: 2}}

	res := SettleBook(marketID, buys, sells, view)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, 20, tr.Quantity)
	assert.InDelta(t, 5.25, tr.Price, 1e-9, "execution price is the mean of the two limits")
	assert.InDelta(t, 105.0, tr.Value(), 1e-9)

	assert.Empty(t, res.Buys)
	assert.Empty(t, res.Sells)
	assert.InDelta(t, 95.0, view.Wallets[buyer], 1e-9)
	assert.InDelta(t, 105.0, view.Wallets[seller], 1e-9)
	assert.Equal(t, 30, view.Inventory[seller][world.Wood])
}

func TestSettleSkipsNonOverlappingLimits(t *testing.T) {
	marketID := uuid.New()
	buyer, seller := uuid.New(), uuid.New()

	view := newView(buyer, seller)
	view.Wallets[buyer] = 1000
	view.Inventory[seller][world.Stone] = 10

	sells := []Order{{AgentID: seller, Kind: world.Stone, Quantity: 10, LimitPrice: 5, Seq: 1}}
	buys := []Order{{AgentID: buyer, Kind: world.Stone, Quantity: 10, LimitPrice: 4, Seq: 2}}

	res := SettleBook(marketID, buys, sells, view)
	assert.Empty(t, res.Trades)
	assert.Len(t, res.Buys, 1, "unmatched orders stay queued")
	assert.Len(t, res.Sells, 1)
}

func TestSettlePartialFillKeepsRemainder(t *testing.T) {
	marketID := uuid.New()
	buyer, seller := uuid.New(), uuid.New()

	view := newView(buyer, seller)
	view.Wallets[buyer] = 1000
	view.Inventory[seller][world.Iron] = 30

	sells := []Order{{AgentID: seller, Kind: world.Iron, Quantity: 30, LimitPrice: 10, Seq: 1}}
	buys := []Order{{AgentID: buyer, Kind: world.Iron, Quantity: 12, LimitPrice: 12, Seq: 2}}

	res := SettleBook(marketID, buys, sells, view)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, 12, res.Trades[0].Quantity)
	assert.Empty(t, res.Buys)
	require.Len(t, res.Sells, 1)
	assert.Equal(t, 18, res.Sells[0].Quantity, "partially filled sell keeps the remainder")
}

func TestSettlePriceTimeOrdering(t *testing.T) {
	marketID := uuid.New()
	cheapSeller, dearSeller, buyer := uuid.New(), uuid.New(), uuid.New()

	view := newView(cheapSeller, dearSeller, buyer)
	view.Wallets[buyer] = 1000
	view.Inventory[cheapSeller][world.Food] = 10
	view.Inventory[dearSeller][world.Food] = 10

	sells := []Order{
		{AgentID: dearSeller, Kind: world.Food, Quantity: 10, LimitPrice: 9, Seq: 1},
		{AgentID: cheapSeller, Kind: world.Food, Quantity: 10, LimitPrice: 7, Seq: 2},
	}
	buys := []Order{{AgentID: buyer, Kind: world.Food, Quantity: 10, LimitPrice: 11, Seq: 3}}

	res := SettleBook(marketID, buys, sells, view)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, cheapSeller, res.Trades[0].SellerID, "lowest ask fills first")
}

func TestSettleInsolventBuyerIsSkippedNotDropped(t *testing.T) {
	marketID := uuid.New()
	poor, rich, seller := uuid.New(), uuid.New(), uuid.New()

	view := newView(poor, rich, seller)
	view.Wallets[poor] = 1 // cannot afford anything
	view.Wallets[rich] = 500
	view.Inventory[seller][world.Wood] = 10

	buys := []Order{
		{AgentID: poor, Kind: world.Wood, Quantity: 10, LimitPrice: 8, Seq: 1},
		{AgentID: rich, Kind: world.Wood, Quantity: 10, LimitPrice: 6, Seq: 2},
	}
	sells := []Order{{AgentID: seller, Kind: world.Wood, Quantity: 10, LimitPrice: 4, Seq: 3}}

	res := SettleBook(marketID, buys, sells, view)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, rich, res.Trades[0].BuyerID, "matching falls through to the next solvent buyer")
	require.Len(t, res.Buys, 1)
	assert.Equal(t, poor, res.Buys[0].AgentID, "the skipped buy stays queued")
}

func TestSettleSellerWithoutGoodsStaysQueued(t *testing.T) {
	marketID := uuid.New()
	buyer, ghost := uuid.New(), uuid.New()

	view := newView(buyer, ghost)
	view.Wallets[buyer] = 500
	// ghost placed a sell but spent the goods since.

	sells := []Order{{AgentID: ghost, Kind: world.Stone, Quantity: 5, LimitPrice: 2, Seq: 1}}
	buys := []Order{{AgentID: buyer, Kind: world.Stone, Quantity: 5, LimitPrice: 4, Seq: 2}}

	res := SettleBook(marketID, buys, sells, view)
	assert.Empty(t, res.Trades)
	assert.Len(t, res.Sells, 1)
	assert.Len(t, res.Buys, 1)
}

func TestPlaceOrderValidation(t *testing.T) {
	store := NewMarketStore()
	m := NewMarket("test", world.Position{}, SpecGeneral, map[world.ResourceKind]float64{world.Wood: 5}, 100)
	store.Add(m)

	_, err := store.PlaceOrder(m.ID, Sell, uuid.New(), world.Wood, 10, 4, 3)
	assert.ErrorIs(t, err, ErrInsufficientInventory, "sell needs collateral")

	_, err = store.PlaceOrder(m.ID, Buy, uuid.New(), world.Wood, 0, 4, 0)
	assert.ErrorIs(t, err, ErrBadOrder)

	_, err = store.PlaceOrder(uuid.New(), Buy, uuid.New(), world.Wood, 1, 4, 0)
	assert.ErrorIs(t, err, ErrUnknownMarket)

	_, err = store.PlaceOrder(m.ID, Buy, uuid.New(), world.Wood, 10, 6, 0)
	require.NoError(t, err)
	buys, _, ok := store.BookCopy(m.ID)
	require.True(t, ok)
	assert.Len(t, buys, 1)
}

func TestCancelOrdersByPurgesEveryBook(t *testing.T) {
	store := NewMarketStore()
	m := NewMarket("test", world.Position{}, SpecGeneral, map[world.ResourceKind]float64{world.Wood: 5}, 100)
	store.Add(m)

	ghost, other := uuid.New(), uuid.New()
	_, err := store.PlaceOrder(m.ID, Sell, ghost, world.Wood, 5, 4, 5)
	require.NoError(t, err)
	_, err = store.PlaceOrder(m.ID, Buy, ghost, world.Wood, 3, 6, 0)
	require.NoError(t, err)
	_, err = store.PlaceOrder(m.ID, Buy, other, world.Wood, 2, 6, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, store.CancelOrdersBy(ghost))

	buys, sells, ok := store.BookCopy(m.ID)
	require.True(t, ok)
	assert.Empty(t, sells)
	require.Len(t, buys, 1, "other agents' orders survive the purge")
	assert.Equal(t, other, buys[0].AgentID)
}

func TestMarketIDsHaveStableOrder(t *testing.T) {
	store := NewMarketStore()
	for i := 0; i < 5; i++ {
		store.Add(NewMarket("m", world.Position{}, SpecGeneral, map[world.ResourceKind]float64{world.Wood: 5}, 0))
	}

	first := store.IDs()
	require.Len(t, first, 5)
	for i := 1; i < len(first); i++ {
		assert.Negative(t, bytes.Compare(first[i-1][:], first[i][:]), "ids come back in ascending byte order")
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, store.IDs())
	}
}

func TestStockSaleAndPurchaseClamp(t *testing.T) {
	store := NewMarketStore()
	m := NewMarket("yard", world.Position{}, SpecMaterials, map[world.ResourceKind]float64{world.Stone: 3}, 30)
	store.Add(m)

	// Market buys from a harvester: bounded by its treasury (30 / 3 = 10).
	qty, paid := store.ApplyStockPurchase(m.ID, world.Stone, 50, 3)
	assert.Equal(t, 10, qty)
	assert.InDelta(t, 30.0, paid, 1e-9)

	stock, _, treasury, ok := store.StockAndPrice(m.ID, world.Stone)
	require.True(t, ok)
	assert.Equal(t, 10, stock)
	assert.Zero(t, treasury)

	// Market sells to a builder: bounded by stock.
	sold := store.ApplyStockSale(m.ID, world.Stone, 25, 3)
	assert.Equal(t, 10, sold)
	stock, _, treasury, _ = store.StockAndPrice(m.ID, world.Stone)
	assert.Zero(t, stock)
	assert.InDelta(t, 30.0, treasury, 1e-9)
}

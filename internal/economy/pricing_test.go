package economy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownworks/internal/world"
)

var testTuning = PriceTuning{ClampMin: 0.5, ClampMax: 5.0, Step: 0.25, ReferenceStock: 100}

func testMarket() *Market {
	return NewMarket("test", world.Position{}, SpecGeneral,
		map[world.ResourceKind]float64{world.Wood: 5, world.Food: 10}, 500)
}

func TestRepriceNeverLeavesClampBand(t *testing.T) {
	m := testMarket()

	// Heavy one-sided demand, repriced many times: price must saturate at
	// the ceiling, never pass it.
	m.Buys = []Order{{AgentID: uuid.New(), Kind: world.Wood, Quantity: 1000, LimitPrice: 50}}
	for i := 0; i < 200; i++ {
		m.reprice(testTuning)
		require.LessOrEqual(t, m.Price(world.Wood), 5.0*5.0)
		require.GreaterOrEqual(t, m.Price(world.Wood), 5.0*0.5)
	}
	assert.InDelta(t, 25.0, m.Price(world.Wood), 0.01, "pure demand saturates at clamp max")

	// Flip to pure supply: price walks down to the floor.
	m.Buys = nil
	m.Sells = []Order{{AgentID: uuid.New(), Kind: world.Wood, Quantity: 1000, LimitPrice: 1}}
	for i := 0; i < 200; i++ {
		m.reprice(testTuning)
	}
	assert.InDelta(t, 2.5, m.Price(world.Wood), 0.01, "pure supply saturates at clamp min")
}

func TestRepriceIsSticky(t *testing.T) {
	m := testMarket()
	m.Buys = []Order{{Kind: world.Wood, Quantity: 100}}
	m.Sells = []Order{{Kind: world.Wood, Quantity: 10}}

	before := m.Price(world.Wood)
	m.reprice(testTuning)
	after := m.Price(world.Wood)

	// Ratio 10 clamps to 5, target 25: one pass closes only Step of the gap.
	assert.Greater(t, after, before)
	assert.InDelta(t, before+(25-before)*0.25, after, 1e-9)
}

func TestRepriceEmptyBookUsesStockScarcity(t *testing.T) {
	m := testMarket()

	// Abundant stock relative to the reference: price drifts down.
	m.Stock[world.Food] = 400
	m.reprice(testTuning)
	assert.Less(t, m.Price(world.Food), 10.0)

	// Bare shelves: price drifts up.
	m2 := testMarket()
	m2.Stock[world.Food] = 10
	m2.reprice(testTuning)
	assert.Greater(t, m2.Price(world.Food), 10.0)
}

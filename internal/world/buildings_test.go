package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverCapsAtRequirement(t *testing.T) {
	b := NewBuilding(Warehouse, "test warehouse", Owner{}, Position{})
	require.Equal(t, 100, b.Required[Wood])

	rejected := b.deliver(map[ResourceKind]int{Wood: 120, Stone: 10})
	assert.Equal(t, 100, b.Delivered[Wood])
	assert.Equal(t, 10, b.Delivered[Stone])
	assert.Equal(t, 20, rejected[Wood])

	// A second delivery against a full kind bounces entirely.
	rejected = b.deliver(map[ResourceKind]int{Wood: 5})
	assert.Equal(t, 100, b.Delivered[Wood])
	assert.Equal(t, 5, rejected[Wood])
}

func TestAdvanceStallsWholeOnAnyShortfall(t *testing.T) {
	b := NewBuilding(Warehouse, "stalled", Owner{}, Position{})
	// Warehouse needs wood 100, stone 50, iron 20. A 2% increment draws
	// ceil(2, 1, 1) but there is no stone on site.
	b.deliver(map[ResourceKind]int{Wood: 10})

	gained := b.advance(0.02)
	assert.Zero(t, gained)
	assert.Zero(t, b.Progress)
	assert.Equal(t, 10, b.Delivered[Wood], "stall must consume nothing")
}

func TestAdvanceDrawsProportionally(t *testing.T) {
	b := NewBuilding(Warehouse, "rising", Owner{}, Position{})
	b.deliver(map[ResourceKind]int{Wood: 100, Stone: 50, Iron: 20})

	gained := b.advance(0.02)
	assert.InDelta(t, 0.02, gained, 1e-9)
	// ceil(100×0.02)=2, ceil(50×0.02)=1, ceil(20×0.02)=1.
	assert.Equal(t, 98, b.Delivered[Wood])
	assert.Equal(t, 49, b.Delivered[Stone])
	assert.Equal(t, 19, b.Delivered[Iron])
}

func TestProgressIsMonotoneAndCapped(t *testing.T) {
	b := NewBuilding(FarmingShed, "shed", Owner{}, Position{})

	// Resupply before each increment: the ceil draw can outrun a single
	// full delivery, so crews keep hauling as material is consumed.
	last := 0.0
	for i := 0; i < 100 && !b.Complete(); i++ {
		b.deliver(b.Type.RequiredResources())
		b.advance(0.25)
		require.GreaterOrEqual(t, b.Progress, last, "progress never decreases")
		last = b.Progress
	}
	assert.True(t, b.Complete())
	assert.Equal(t, 1.0, b.Progress)

	// Completed buildings refuse further increments.
	assert.Zero(t, b.advance(0.5))
}

func TestDamageAndDestruction(t *testing.T) {
	b := NewBuilding(Tavern, "the broken keg", Owner{}, Position{})
	b.Damage(40)
	assert.Equal(t, 60.0, b.Health)
	assert.False(t, b.Destroyed())
	b.Damage(500)
	assert.Zero(t, b.Health)
	assert.True(t, b.Destroyed())
}

func TestBuildingStoreAdvanceReportsCompletion(t *testing.T) {
	store := NewBuildingStore()
	b := NewBuilding(FarmingShed, "shed", Owner{}, Position{})
	store.Add(b)

	var completed bool
	for i := 0; i < 100 && !completed; i++ {
		_, ok := store.Deliver(b.ID, b.Type.RequiredResources())
		require.True(t, ok)
		_, completed = store.Advance(b.ID, 0.25)
	}
	assert.True(t, completed)

	// Already complete: no second completion signal.
	_, again := store.Advance(b.ID, 0.25)
	assert.False(t, again)
	assert.Empty(t, store.Incomplete())
}

func TestSweepDestroyed(t *testing.T) {
	store := NewBuildingStore()
	b := NewBuilding(Walls, "east walls", Owner{}, Position{})
	store.Add(b)
	store.Damage(b.ID, 100)

	gone := store.SweepDestroyed()
	require.Len(t, gone, 1)
	assert.Equal(t, b.ID, gone[0])
	_, found := store.Get(b.ID)
	assert.False(t, found)
}
